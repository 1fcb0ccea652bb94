// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tamer/internal/models"
)

// Event is one call recorded by [MockTransport].
type Event struct {
	Kind           string // "send", "reply", "edit", "choice" or "file"
	ConversationID int64
	MessageID      int // message created, or the target of a reply/edit
	Text           string
	Choices        []models.Choice
	Path           string
}

// MockTransport is a test double for tasks.Transport that records every call.
//
// Message ids start at 1. Setting Err makes every call fail after being recorded.
type MockTransport struct {
	mu     sync.Mutex
	nextID int
	events []Event
	Err    error

	// OnFile, when set, is called with the path of every uploaded file.
	OnFile func(path string)

	// FileErr fails SendFile only, after the upload is recorded.
	FileErr error
}

func (m *MockTransport) record(e Event, create bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if create {
		m.nextID++
		e.MessageID = m.nextID
	}
	m.events = append(m.events, e)
	if m.Err != nil {
		return 0, m.Err
	}
	return e.MessageID, nil
}

func (m *MockTransport) SendMessage(ctx context.Context, conversationID int64, text string) (int, error) {
	return m.record(Event{Kind: "send", ConversationID: conversationID, Text: text}, true)
}

func (m *MockTransport) ReplyTo(ctx context.Context, conversationID int64, messageID int, text string) (int, error) {
	id, err := m.record(Event{Kind: "reply", ConversationID: conversationID, Text: text}, true)
	return id, err
}

func (m *MockTransport) EditMessage(ctx context.Context, conversationID int64, messageID int, text string) error {
	_, err := m.record(Event{Kind: "edit", ConversationID: conversationID, MessageID: messageID, Text: text}, false)
	return err
}

func (m *MockTransport) SendChoice(ctx context.Context, conversationID int64, text string, choices []models.Choice) (int, error) {
	return m.record(Event{Kind: "choice", ConversationID: conversationID, Text: text, Choices: choices}, true)
}

func (m *MockTransport) SendFile(ctx context.Context, conversationID int64, path string) error {
	if m.OnFile != nil {
		m.OnFile(path)
	}
	_, err := m.record(Event{Kind: "file", ConversationID: conversationID, Path: path}, false)
	if err != nil {
		return err
	}
	return m.FileErr
}

// Events returns a copy of everything recorded so far.
func (m *MockTransport) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Files returns uploaded paths in order.
func (m *MockTransport) Files() []string {
	var paths []string
	for _, e := range m.Events() {
		if e.Kind == "file" {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// Texts returns the text of every event of the given kind, or of all kinds when kind is empty.
func (m *MockTransport) Texts(kind string) []string {
	var texts []string
	for _, e := range m.Events() {
		if kind == "" || e.Kind == kind {
			texts = append(texts, e.Text)
		}
	}
	return texts
}

// LastChoice returns the most recent keyboard message.
func (m *MockTransport) LastChoice() (Event, bool) {
	events := m.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == "choice" {
			return events[i], true
		}
	}
	return Event{}, false
}

// HasText reports whether any recorded text contains substr.
func (m *MockTransport) HasText(substr string) bool {
	for _, text := range m.Texts("") {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// MockCatalog is a test double for tasks.Catalog keyed by id.
type MockCatalog struct {
	Tracks    map[string]models.TrackRef
	Playlists map[string][]models.TrackRef
	Albums    map[string][]models.TrackRef
	Err       error
	Calls     int
}

func (m *MockCatalog) Track(ctx context.Context, id string) (models.TrackRef, error) {
	m.Calls++
	if m.Err != nil {
		return models.TrackRef{}, m.Err
	}
	tr, ok := m.Tracks[id]
	if !ok {
		return models.TrackRef{}, fmt.Errorf("track %s not found", id)
	}
	return tr, nil
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, id string) (string, []models.TrackRef, error) {
	m.Calls++
	if m.Err != nil {
		return "", nil, m.Err
	}
	tracks, ok := m.Playlists[id]
	if !ok {
		return "", nil, fmt.Errorf("playlist %s not found", id)
	}
	return "playlist " + id, append([]models.TrackRef(nil), tracks...), nil
}

func (m *MockCatalog) AlbumTracks(ctx context.Context, id string) (string, []models.TrackRef, error) {
	m.Calls++
	if m.Err != nil {
		return "", nil, m.Err
	}
	tracks, ok := m.Albums[id]
	if !ok {
		return "", nil, fmt.Errorf("album %s not found", id)
	}
	return "album " + id, append([]models.TrackRef(nil), tracks...), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
