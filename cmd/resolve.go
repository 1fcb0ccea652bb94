package main

import (
	"context"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tamer/internal/models"
)

type resolveResult struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
}

// Resolve prints the source URL the pipeline would download for a title and artist.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	target := models.TrackRef{
		Title:  strings.TrimSpace(cmd.String("title")),
		Artist: strings.TrimSpace(cmd.String("artist")),
	}

	r.logger.Debug("resolving", "track", target.String())
	url, err := r.resolver(ctx).Resolve(ctx, target)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resolveResult{Title: target.Title, Artist: target.Artist, URL: url}, true)
	}
	return r.writePlain("%s\n", url)
}
