package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/tamer/internal/shared"
	"github.com/desertthunder/tamer/internal/transport"
)

// Serve runs the Telegram listener and the queue worker until interrupted.
//
// Jobs still queued at shutdown are dropped; the job in flight is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	token := r.config.Credentials.Telegram.Token
	if token == "" {
		return fmt.Errorf("%w: set credentials.telegram.token or TELEGRAM_TOKEN", shared.ErrMissingCredentials)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	history, closeHistory, err := r.history()
	if err != nil {
		return err
	}
	defer closeHistory()

	tg, err := transport.NewTelegram(token, r.logger)
	if err != nil {
		return err
	}

	orch, err := r.newOrchestrator(ctx, tg, history, nil)
	if err != nil {
		return err
	}
	defer orch.Close()

	r.logger.Info("serving", "download_dir", r.config.Download.Dir, "attempts", r.config.Download.Attempts, "history", history != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orch.Run(gctx)
	})
	g.Go(func() error {
		return tg.Listen(gctx, orch)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Info("shutdown complete")
	return nil
}
