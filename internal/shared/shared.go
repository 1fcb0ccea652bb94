// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ConfigureLogger applies the level named in cfg, leaving the logger untouched when it does not parse.
func ConfigureLogger(l *log.Logger, cfg *Config) {
	if lvl, err := log.ParseLevel(cfg.LogLevelName()); err == nil {
		SetLogLevel(l, lvl)
	}
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	"\x00", "",
)

// SanitizeFilename makes a track name safe to use as a single path element.
//
// Separators are replaced and an empty or dot-only result becomes "track".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(filenameReplacer.Replace(name))
	if strings.Trim(name, ".") == "" {
		return "track"
	}
	return name
}

// MarshalJSON encodes v, indenting with two spaces when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
