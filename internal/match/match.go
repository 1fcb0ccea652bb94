// Package match scores search candidates against a requested track.
//
// A candidate's score is the mean of its title similarity and its artist
// similarity, each on a 0-100 scale. Artists are compared as a single
// comma-joined line. A candidate is accepted only when its score is strictly
// greater than the engine threshold.
//
// Similarity is the indel ratio 100 * (1 - d / (len(a) + len(b))), where d is
// the edit distance with insertions and deletions costing 1 and substitutions
// costing 2, rounded half to even. Both sides are lower-cased, trimmed and have
// runs of whitespace collapsed to one space before comparing. An empty side
// scores 0.
package match

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil/metrics"

	"github.com/desertthunder/tamer/internal/models"
)

// DefaultThreshold is the score a candidate must exceed to be accepted.
const DefaultThreshold = 70.0

// Engine selects the best candidate for a track.
type Engine struct {
	threshold float64
	metric    *metrics.Levenshtein
}

// NewEngine returns an engine with the given threshold. Non-positive values use [DefaultThreshold].
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold, metric: &metrics.Levenshtein{
		CaseSensitive: true,
		InsertCost:    1,
		DeleteCost:    1,
		ReplaceCost:   2,
	}}
}

// Threshold returns the acceptance threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Similarity returns the case-insensitive similarity of a and b in [0, 100].
func (e *Engine) Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	d := e.metric.Distance(a, b)
	return math.RoundToEven(100 * (1 - float64(d)/float64(total)))
}

// Score rates c against target.
func (e *Engine) Score(target models.TrackRef, c models.Candidate) float64 {
	title := e.Similarity(target.Title, c.Title)
	artist := e.Similarity(target.Artist, c.ArtistLine())
	return (title + artist) / 2
}

// SelectBest returns the highest scoring candidate and its score.
//
// Ties keep the earliest candidate. ok is false when the list is empty or the
// best score does not exceed the threshold.
func (e *Engine) SelectBest(target models.TrackRef, candidates []models.Candidate) (best models.Candidate, score float64, ok bool) {
	score = -1
	for _, c := range candidates {
		if s := e.Score(target, c); s > score {
			best, score = c, s
		}
	}
	if score > e.threshold {
		return best, score, true
	}
	if score < 0 {
		score = 0
	}
	return models.Candidate{}, score, false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
