package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/tomz197/sieve/internal/bridge"
	"github.com/tomz197/sieve/internal/config"
	"github.com/tomz197/sieve/internal/draw"
	"github.com/tomz197/sieve/internal/logging"
	"github.com/tomz197/sieve/internal/loop/client"
	"github.com/tomz197/sieve/internal/loop/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "game error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// The terminal is the game screen, so logs only go to SIEVE_LOG_FILE.
	logger, closeLog, err := logging.FromEnv(io.Discard, "sieve")
	if err != nil {
		return err
	}
	defer closeLog()

	tuning, err := config.TuningFromEnv()
	if err != nil {
		return err
	}

	opts := server.Options{Tuning: tuning, Logger: logger}
	bridgeAddr := config.GetEnv(config.EnvBridgeAddr, "")
	var registry *bridge.Registry
	if bridgeAddr != "" {
		registry = bridge.NewRegistry()
		opts.Pairing = registry
	}
	gameServer := server.NewServer(opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gameServer.Run(ctx)
		return nil
	})

	bridgeURL := ""
	if registry != nil {
		bridgeURL = bridge.PublicURL(bridgeAddr, config.GetEnv(config.EnvBridgeURL, ""))
		httpServer := &http.Server{
			Addr: bridgeAddr,
			Handler: bridge.NewHandler(registry, bridge.Options{
				OrientationRate:  tuning.Bridge.OrientationRate,
				OrientationBurst: tuning.Bridge.OrientationBurst,
				Logger:           logger.WithPrefix("bridge"),
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("tilt bridge listening", "addr", bridgeAddr, "url", bridgeURL)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("tilt bridge: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}

	draw.EnableMouse(os.Stdout)
	reader := bufio.NewReader(os.Stdin)
	c := client.NewClient(gameServer, reader, os.Stdout, client.ClientOptions{
		Username:  config.GetEnv("USER", "player"),
		BridgeURL: bridgeURL,
	})
	runErr := c.Run()
	draw.DisableMouse(os.Stdout)
	_ = term.Restore(fd, oldState)

	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
