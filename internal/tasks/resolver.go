package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tamer/internal/match"
	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// Resolver maps a track to a downloadable source URL.
//
// The primary backend's song results are scored by the match engine. When it returns nothing,
// nothing above threshold, or an error, the first hit of the secondary backend is taken as is.
type Resolver struct {
	primary   PrimarySearch
	secondary SecondarySearch
	engine    *match.Engine
	limiter   *rate.Limiter
	logger    *log.Logger
}

// ResolverOpts configures a [Resolver]. Limiter and Engine are optional.
type ResolverOpts struct {
	Primary   PrimarySearch
	Secondary SecondarySearch
	Engine    *match.Engine
	Limiter   *rate.Limiter
	Logger    *log.Logger
}

// NewResolver creates a resolver over the given backends.
func NewResolver(opts ResolverOpts) *Resolver {
	if opts.Engine == nil {
		opts.Engine = match.NewEngine(match.DefaultThreshold)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Resolver{
		primary:   opts.Primary,
		secondary: opts.Secondary,
		engine:    opts.Engine,
		limiter:   opts.Limiter,
		logger:    shared.WithLogger(opts.Logger, "component", "resolver"),
	}
}

// PrimaryQuery builds the song search query for target.
func PrimaryQuery(target models.TrackRef) string {
	return fmt.Sprintf("%s - %s (official audio)", target.Title, target.Artist)
}

// SecondaryQuery builds the fallback video search query for target.
func SecondaryQuery(target models.TrackRef) string {
	return fmt.Sprintf("%s - %s", target.Artist, target.Title)
}

// Resolve returns the watch URL of the best source for target.
func (r *Resolver) Resolve(ctx context.Context, target models.TrackRef) (string, error) {
	first := r.fromPrimary(ctx, target)
	if first.url != "" {
		return first.url, nil
	}

	if r.secondary == nil {
		return "", fmt.Errorf("%w: %s: %v", shared.ErrResolutionFailed, target, first.err)
	}
	if err := r.wait(ctx); err != nil {
		return "", err
	}

	query := SecondaryQuery(target)
	results, err := r.secondary.SearchVideos(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", shared.ErrResolutionFailed, target, errors.Join(first.err, err))
	}
	for _, v := range results {
		if v.SourceID == "" {
			continue
		}
		r.logger.Info("resolved via fallback", "track", target, "query", query, "source", v.SourceID, "title", v.Title)
		return models.WatchURL(v.SourceID), nil
	}

	return "", fmt.Errorf("%w: %s: no results for %q", shared.ErrResolutionFailed, target, query)
}

type primaryResult struct {
	url string
	err error
}

func (r *Resolver) fromPrimary(ctx context.Context, target models.TrackRef) primaryResult {
	if r.primary == nil {
		return primaryResult{err: fmt.Errorf("no primary search backend")}
	}
	if err := r.wait(ctx); err != nil {
		return primaryResult{err: err}
	}

	query := PrimaryQuery(target)
	candidates, err := r.primary.SearchSongs(ctx, query)
	if err != nil {
		r.logger.Warn("primary search failed, falling back", "track", target, "error", err)
		return primaryResult{err: err}
	}
	if len(candidates) == 0 {
		r.logger.Info("primary search returned nothing, falling back", "track", target, "query", query)
		return primaryResult{err: fmt.Errorf("no candidates for %q", query)}
	}

	best, score, ok := r.engine.SelectBest(target, candidates)
	if !ok {
		r.logger.Info("no candidate above threshold, falling back", "track", target,
			"best_score", score, "threshold", r.engine.Threshold())
		return primaryResult{err: fmt.Errorf("best score %.1f not above %.1f", score, r.engine.Threshold())}
	}

	r.logger.Info("resolved via primary", "track", target, "source", best.SourceID, "score", score)
	return primaryResult{url: models.WatchURL(best.SourceID)}
}

func (r *Resolver) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
