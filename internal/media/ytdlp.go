package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lrstanley/go-ytdlp"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// TagWriter stamps title and artist onto a finished file. [Tagger] implements it.
type TagWriter interface {
	Tag(path string, tags models.Tags) error
}

var _ TagWriter = (*Tagger)(nil)

// RunFunc executes a prepared yt-dlp command for sourceURL.
type RunFunc func(ctx context.Context, cmd *ytdlp.Command, sourceURL string, spec models.OutputSpec) error

// YtdlpOpts configures a [YtdlpBackend].
type YtdlpOpts struct {
	// Executable overrides the yt-dlp binary found on PATH.
	Executable string

	// Install downloads a managed yt-dlp binary before the first fetch.
	Install bool

	Tagger TagWriter
	Logger *log.Logger

	// Run replaces command execution. Tests use it to fake yt-dlp.
	Run RunFunc
}

// YtdlpBackend fetches the best audio stream with yt-dlp and converts it to MP3.
//
// It implements tasks.FetchBackend.
type YtdlpBackend struct {
	executable string
	install    bool
	tagger     TagWriter
	logger     *log.Logger
	run        RunFunc

	installOnce sync.Once
	installErr  error
}

func NewYtdlpBackend(opts YtdlpOpts) *YtdlpBackend {
	if opts.Tagger == nil {
		opts.Tagger = NewTagger()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Run == nil {
		opts.Run = runCommand
	}
	return &YtdlpBackend{
		executable: opts.Executable,
		install:    opts.Install,
		tagger:     opts.Tagger,
		logger:     opts.Logger,
		run:        opts.Run,
	}
}

// Fetch writes sourceURL to spec.Path as an MP3 at spec.Bitrate and tags it.
//
// A run that exits cleanly without producing spec.Path is a failure. When tagging
// fails the file is removed before the error is returned.
func (b *YtdlpBackend) Fetch(ctx context.Context, sourceURL string, spec models.OutputSpec) error {
	if err := b.ensureInstalled(ctx); err != nil {
		return err
	}
	if !spec.Bitrate.Valid() {
		return fmt.Errorf("%w: bitrate %d", shared.ErrInvalidArgument, spec.Bitrate)
	}
	if err := os.MkdirAll(filepath.Dir(spec.Path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := b.Command(spec)
	b.logger.Debug("running yt-dlp", "url", sourceURL, "output", spec.Path, "bitrate", spec.Bitrate)
	if err := b.run(ctx, cmd, sourceURL, spec); err != nil {
		return err
	}

	if _, err := os.Stat(spec.Path); err != nil {
		return fmt.Errorf("yt-dlp reported success but %s is missing: %w", spec.Path, err)
	}
	if err := b.tagger.Tag(spec.Path, spec.Tags); err != nil {
		if rmErr := os.Remove(spec.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			b.logger.Warn("failed to remove untagged file", "path", spec.Path, "error", rmErr)
		}
		return err
	}
	return nil
}

// Command builds the yt-dlp invocation for spec.
func (b *YtdlpBackend) Command(spec models.OutputSpec) *ytdlp.Command {
	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(spec.Bitrate.Quality()).
		Output(OutputTemplate(spec.Path)).
		NoPlaylist().
		ForceOverwrites().
		NoWarnings().
		IgnoreConfig()

	if b.executable != "" {
		cmd.SetExecutable(b.executable)
	}
	return cmd
}

// OutputTemplate converts a final .mp3 path into a yt-dlp output template.
// Literal percent signs are escaped and the extension is left to yt-dlp.
func OutputTemplate(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return strings.ReplaceAll(base, "%", "%%") + ".%(ext)s"
}

func (b *YtdlpBackend) ensureInstalled(ctx context.Context) error {
	if !b.install || b.executable != "" {
		return nil
	}
	b.installOnce.Do(func() {
		b.logger.Info("installing yt-dlp")
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			b.installErr = fmt.Errorf("failed to install yt-dlp: %w", err)
		}
	})
	return b.installErr
}

func runCommand(ctx context.Context, cmd *ytdlp.Command, sourceURL string, _ models.OutputSpec) error {
	res, err := cmd.Run(ctx, sourceURL)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if res != nil && strings.TrimSpace(res.Stderr) != "" {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, lastLine(res.Stderr))
	}
	return fmt.Errorf("yt-dlp failed: %w", err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
