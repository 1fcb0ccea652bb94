package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
	"github.com/desertthunder/tamer/internal/tasks"
	"github.com/desertthunder/tamer/internal/transport"
)

// consoleConversation identifies the terminal session to the orchestrator.
const consoleConversation int64 = 0

// Download runs a single link through the same pipeline as the bot, answering the quality prompt from --bitrate.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	link := cmd.StringArg("link")
	if link == "" {
		return fmt.Errorf("%w: link", shared.ErrMissingArgument)
	}

	bitrate := models.Bitrate(r.config.Download.DefaultBitrate)
	if b := cmd.Int("bitrate"); b != 0 {
		bitrate = models.Bitrate(b)
	}
	if !bitrate.Valid() {
		return fmt.Errorf("%w: bitrate must be one of 128, 192, 256, 320", shared.ErrInvalidFlag)
	}

	history, closeHistory, err := r.history()
	if err != nil {
		r.logger.Warn("history disabled", "error", err)
		history = nil
	}
	defer closeHistory()

	console := transport.NewConsole(r.output, cmd.String("output"))

	var (
		progress chan tasks.ProgressUpdate
		wg       sync.WaitGroup
	)
	if !cmd.Bool("quiet") {
		progress = make(chan tasks.ProgressUpdate, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			transport.RenderProgress(os.Stderr, progress)
		}()
	}

	err = r.runDownload(ctx, console, history, progress, link, bitrate)
	if progress != nil {
		close(progress)
		wg.Wait()
	}
	if err != nil {
		return err
	}

	if len(console.Delivered()) == 0 {
		return fmt.Errorf("%w: nothing was downloaded", shared.ErrDownloadFailed)
	}
	return nil
}

func (r *Runner) runDownload(ctx context.Context, console *transport.Console, history tasks.HistoryRecorder, progress chan<- tasks.ProgressUpdate, link string, bitrate models.Bitrate) error {
	orch, err := r.newOrchestrator(ctx, console, history, progress)
	if err != nil {
		return err
	}

	if err := orch.OnLinkCommand(ctx, consoleConversation, 0, link); err != nil {
		return err
	}
	if err := orch.OnBitrateSelected(ctx, consoleConversation, 0, bitrate); err != nil {
		return err
	}

	orch.Close()
	return orch.Drain(ctx)
}
