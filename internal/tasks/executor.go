package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// Executor performs exactly one fetch per call. Retrying is the caller's policy.
type Executor struct {
	backend FetchBackend
	dir     string
}

// NewExecutor writes files into dir, defaulting to "audio".
func NewExecutor(backend FetchBackend, dir string) *Executor {
	if dir == "" {
		dir = "audio"
	}
	return &Executor{backend: backend, dir: dir}
}

// OutputPath is where a track named trackName is written.
func (e *Executor) OutputPath(trackName string) string {
	return filepath.Join(e.dir, shared.SanitizeFilename(trackName)+".mp3")
}

// Fetch downloads sourceURL as an MP3 tagged with trackName and artistName.
func (e *Executor) Fetch(ctx context.Context, sourceURL, trackName, artistName string, bitrate models.Bitrate) (string, error) {
	return e.FetchAs(ctx, sourceURL, trackName, trackName, artistName, bitrate)
}

// FetchAs is [Executor.Fetch] writing to the file for fileName instead of trackName.
func (e *Executor) FetchAs(ctx context.Context, sourceURL, fileName, trackName, artistName string, bitrate models.Bitrate) (string, error) {
	spec := models.OutputSpec{
		Path:    e.OutputPath(fileName),
		Bitrate: bitrate,
		Tags:    models.Tags{Title: trackName, Artist: artistName},
	}
	if err := e.backend.Fetch(ctx, sourceURL, spec); err != nil {
		return "", fmt.Errorf("%w: %s by %s: %w", shared.ErrDownloadFailed, trackName, artistName, err)
	}
	return spec.Path, nil
}

// fileNames hands out output names that are distinct within one job.
type fileNames map[string]bool

// claim returns title, or "title (n)" for the smallest n >= 2 not yet taken.
// Names are compared after sanitizing and case folding.
func (n fileNames) claim(title string) string {
	name := title
	for i := 2; ; i++ {
		key := strings.ToLower(shared.SanitizeFilename(name))
		if !n[key] {
			n[key] = true
			return name
		}
		name = fmt.Sprintf("%s (%d)", title, i)
	}
}
