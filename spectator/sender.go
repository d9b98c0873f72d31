package spectator

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

//go:generate mockery --name=Connection --output=automock --outpkg=automock --case=underscore
type Connection interface {
	WriteMessage(int, []byte) error
	Close() error
	ReadMessage() (int, []byte, error)
}

var _ Connection = (*websocket.Conn)(nil)

//go:generate mockery --name=FrameSender --output=automock --outpkg=automock --case=underscore
type FrameSender interface {
	SendFrame(frame Frame, conn Connection) error
}

type Sender struct {
}

func (s *Sender) SendFrame(frame Frame, conn Connection) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("send frame: marshal error: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("send frame: send message error: %w", err)
	}
	return nil
}
