package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/tasks"
)

// Console prints conversation messages to a writer and keeps delivered files in a directory.
//
// Every conversation shares the same output; the conversation id is ignored.
type Console struct {
	mu        sync.Mutex
	out       io.Writer
	outputDir string
	nextID    int
	delivered []string
}

// NewConsole writes to out (stdout when nil) and copies delivered files into outputDir.
func NewConsole(out io.Writer, outputDir string) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, outputDir: outputDir}
}

func (c *Console) print(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	fmt.Fprintln(c.out, text)
	return c.nextID
}

func (c *Console) SendMessage(ctx context.Context, conversationID int64, text string) (int, error) {
	return c.print(text), nil
}

func (c *Console) ReplyTo(ctx context.Context, conversationID int64, messageID int, text string) (int, error) {
	return c.print(text), nil
}

// EditMessage prints the replacement text as a new line.
func (c *Console) EditMessage(ctx context.Context, conversationID int64, messageID int, text string) error {
	c.print(text)
	return nil
}

func (c *Console) SendChoice(ctx context.Context, conversationID int64, text string, choices []models.Choice) (int, error) {
	labels := make([]string, 0, len(choices))
	for _, ch := range choices {
		labels = append(labels, ch.Label)
	}
	return c.print(text + "\n  [" + strings.Join(labels, "] [") + "]"), nil
}

// SendFile copies path into the output directory. The source is removed by the caller after delivery.
func (c *Console) SendFile(ctx context.Context, conversationID int64, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dst := filepath.Join(c.outputDir, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		return err
	}

	c.mu.Lock()
	c.delivered = append(c.delivered, dst)
	c.mu.Unlock()
	c.print("Saved " + dst)
	return nil
}

// Delivered returns the destination paths of every delivered file.
func (c *Console) Delivered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.delivered...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// RenderProgress draws a per-track progress bar from updates until the channel is closed.
func RenderProgress(w io.Writer, updates <-chan tasks.ProgressUpdate) {
	var bar *progressbar.ProgressBar
	newBar := func(total int) *progressbar.ProgressBar {
		return progressbar.NewOptions(
			total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription("Waiting..."),
		)
	}

	for u := range updates {
		switch u.Phase {
		case tasks.Queued:
			bar = newBar(max(u.Total, 1))
		case tasks.ResolveTrack, tasks.DownloadTrack:
			if bar == nil {
				bar = newBar(max(u.Total, 1))
			}
			bar.Describe(u.Message)
			_ = bar.Set(u.Step - 1)
		case tasks.TrackFailed:
			if bar != nil {
				_ = bar.Set(u.Step)
			}
			fmt.Fprintln(w, "\n"+u.Message)
		case tasks.JobFinished:
			if bar != nil {
				_ = bar.Finish()
				bar = nil
			}
			fmt.Fprintln(w, u.Message)
		}
	}
}
