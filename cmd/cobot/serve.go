package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gwillem/cobot/pkg/api"
)

type ServeCommand struct {
	Host     string `long:"host" env:"HOST" description:"Listen address (default from config)"`
	Port     int    `long:"port" env:"PORT" description:"Listen port (default from config)"`
	NoEnable bool   `long:"no-enable" description:"Do not clear errors and enable the motors at startup"`
}

const shutdownTimeout = 10 * time.Second

func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.LogLevel)

	addr, err := c.listenAddr(cfg.Addr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker, err := openTracker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		tracker.Shutdown(ctx)
	}()

	if !c.NoEnable {
		// A failed enable leaves the tracker in ERROR; clients can retry.
		if _, err := tracker.Enable(ctx); err != nil {
			log.Warn().Err(err).Msg("enable at startup failed")
		}
	}

	if interval := time.Duration(cfg.Monitor); interval > 0 {
		go tracker.Monitor(ctx, interval)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(tracker, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("backend", string(cfg.Robot.Backend)).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// listenAddr applies --host and --port to the configured address.
func (c *ServeCommand) listenAddr(configured string) (string, error) {
	host, port, err := net.SplitHostPort(configured)
	if err != nil {
		return "", err
	}
	if c.Host != "" {
		host = c.Host
	}
	if c.Port > 0 {
		port = strconv.Itoa(c.Port)
	}
	return net.JoinHostPort(host, port), nil
}
