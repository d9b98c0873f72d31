package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhinci/Morskoy-boy/internal/config"
	"github.com/rhinci/Morskoy-boy/metrics"
	"github.com/rhinci/Morskoy-boy/session"
	"github.com/rhinci/Morskoy-boy/spectator"
	"github.com/rhinci/Morskoy-boy/store"
)

var (
	cfg       = config.Default()
	autoPlace bool
)

func Execute() error {
	root := &cobra.Command{
		Use:          "seabattle",
		Short:        "Two-player sea battle over a direct TCP link",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.PlayerName, "name", "n", cfg.PlayerName, "player name (default Player_NNNN)")
	flags.IntVarP(&cfg.Port, "port", "p", cfg.Port, "TCP port to host on or dial")
	flags.DurationVar(&cfg.Linger, "linger", cfg.Linger, "keep the link open this long after the match ends")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "file the match log is saved to")
	flags.StringVar(&cfg.S3.Bucket, "s3-bucket", "", "save the match log to this S3 bucket instead of a file")
	flags.StringVar(&cfg.S3.Prefix, "s3-prefix", "", "key prefix inside the bucket")
	flags.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "bucket region")
	flags.StringVar(&cfg.S3.Endpoint, "s3-endpoint", "", "custom S3 endpoint, e.g. http://localhost:9000")
	flags.BoolVar(&cfg.S3.PathStyle, "s3-path-style", false, "use path style bucket addressing")
	flags.StringVar(&cfg.SpectatorAddr, "spectator", "", "serve the spectator feed on this address, e.g. :8080")
	flags.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "expose /metrics on the spectator feed")
	flags.BoolVar(&autoPlace, "auto", false, "place the fleet at random and start right away")

	root.AddCommand(hostCmd(), joinCmd())
	return root.Execute()
}

// startFunc opens the link to the opponent once the fleet is placed.
type startFunc func(ctx context.Context, s *session.Session) error

// play wires a session with its sink, metrics and optional spectator feed and
// hands stdin to the console until the player quits.
func play(ctx context.Context, c config.Config, in io.Reader, out io.Writer, start startFunc) error {
	level, err := config.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := newSink(ctx, c)
	if err != nil {
		return err
	}

	m := metrics.New()
	s := session.New(session.Options{
		PlayerName: c.PlayerName,
		Logger:     logger,
		Metrics:    m,
		Sink:       sink,
		Linger:     c.Linger,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Run(ctx)
	}()

	if c.SpectatorAddr != "" {
		var opts []spectator.Option
		opts = append(opts, spectator.WithLogger(logger))
		if c.Metrics {
			opts = append(opts, spectator.WithMetrics(m))
		}
		srv := spectator.New(s, opts...)
		httpServer := &http.Server{Addr: c.SpectatorAddr, Handler: srv.Routes(), ReadHeaderTimeout: 5 * time.Second}

		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = srv.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
		go func() {
			logger.Info("spectator feed listening", "addr", c.SpectatorAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("spectator feed stopped", "err", err)
			}
		}()
	}

	con := newConsole(s, in, out, start)
	if autoPlace {
		if err := s.AutoPlace(); err != nil {
			stop()
			wg.Wait()
			return err
		}
		con.println("Fleet placed at random.")
		if err := start(ctx, s); err != nil {
			con.println(fmt.Sprintf("Could not start: %v", err))
		}
	}
	err = con.run(ctx)

	stop()
	wg.Wait()
	return err
}

func newSink(ctx context.Context, c config.Config) (store.Sink, error) {
	if c.S3.Enabled() {
		client, err := store.NewS3Client(ctx, store.S3Config{
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			PathStyle: c.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return store.NewS3Store(client, c.S3.Bucket, c.S3.Prefix, ""), nil
	}
	return store.NewFileStore(c.LogFile), nil
}
