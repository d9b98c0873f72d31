package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rhinci/Morskoy-boy/session"
)

const (
	cmdPlace = "place"
	cmdAuto  = "auto"
	cmdStart = "start"
	cmdShoot = "shoot"
	cmdChat  = "chat"
	cmdBoard = "board"
	cmdLog   = "log"
	cmdSave  = "save"
	cmdLoad  = "load"
	cmdReset = "reset"
	cmdHelp  = "help"
	cmdQuit  = "quit"
)

const usage = `commands:
  place <size> <x> <y> <h|v>  place a ship with its bow at (x, y)
  auto                        place the whole fleet at random
  start                       host or join once the fleet is placed
  shoot <x> <y>               fire at the opponent's board
  chat <text>                 send a message to the opponent
  board                       print both boards
  log                         print the match log
  save | load                 store or restore the match log
  reset                       drop the match and start over
  quit`

var errUsage = errors.New("bad arguments, type help")

type console struct {
	session *session.Session
	in      io.Reader
	out     io.Writer
	start   startFunc

	mu sync.Mutex
}

func newConsole(s *session.Session, in io.Reader, out io.Writer, start startFunc) *console {
	return &console{session: s, in: in, out: out, start: start}
}

func (c *console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// run reads commands until quit, end of input or ctx is done.
func (c *console) run(ctx context.Context) error {
	events, cancel := c.session.Subscribe()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		c.watch(events)
	}()
	defer func() {
		cancel()
		<-watchDone
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	c.println(fmt.Sprintf("Playing as %s. Type help for commands.", c.session.Name()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.execute(ctx, line)
			if err != nil {
				c.println("error: " + err.Error())
			}
			if quit {
				return nil
			}
		}
	}
}

// watch prints log entries as they arrive and redraws the boards whenever
// the turn passes to the local player.
func (c *console) watch(events <-chan session.Event) {
	for event := range events {
		switch event.Kind {
		case session.LogAppended:
			c.println(event.Entry)
		case session.StateChanged:
			if event.Phase == session.MyTurn {
				c.printBoards()
			}
		}
	}
}

func (c *console) execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case cmdPlace:
		if len(args) != 4 {
			return false, errUsage
		}
		nums, err := atois(args[:3])
		if err != nil {
			return false, err
		}
		horizontal, err := parseDirection(args[3])
		if err != nil {
			return false, err
		}
		return false, c.session.PlaceShip(nums[0], nums[1], nums[2], horizontal)
	case cmdAuto:
		if err := c.session.AutoPlace(); err != nil {
			return false, err
		}
		c.printMyBoard()
		return false, nil
	case cmdStart:
		return false, c.start(ctx, c.session)
	case cmdShoot:
		if len(args) != 2 {
			return false, errUsage
		}
		nums, err := atois(args)
		if err != nil {
			return false, err
		}
		return false, c.session.Shoot(nums[0], nums[1])
	case cmdChat:
		return false, c.session.Chat(strings.Join(args, " "))
	case cmdBoard:
		c.printBoards()
		return false, nil
	case cmdLog:
		for _, entry := range c.session.Snapshot().Log {
			c.println(entry)
		}
		return false, nil
	case cmdSave:
		return false, c.session.SaveLog(ctx)
	case cmdLoad:
		return false, c.session.LoadLog(ctx)
	case cmdReset:
		return false, c.session.Reset()
	case cmdHelp:
		c.println(usage)
		return false, nil
	case cmdQuit, "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, type help", fields[0])
	}
}

func (c *console) printMyBoard() {
	c.println("Your fleet:\n" + c.session.Snapshot().RenderMyBoard())
}

func (c *console) printBoards() {
	snap := c.session.Snapshot()
	c.println(fmt.Sprintf("Your fleet:\n%s\nOpponent:\n%s\nPhase: %s", snap.RenderMyBoard(), snap.RenderEnemyBoard(), snap.Phase))
}

func atois(args []string) ([]int, error) {
	nums := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", arg)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func parseDirection(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "h", "horizontal":
		return true, nil
	case "v", "vertical":
		return false, nil
	default:
		return false, fmt.Errorf("direction must be h or v, got %q", s)
	}
}
