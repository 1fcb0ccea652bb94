package tasks

import (
	"fmt"
	"sync"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// Pending is the position of a conversation in the request state machine.
type Pending int

const (
	PendingNone Pending = iota
	AwaitingQuality
	Enqueued
)

func (p Pending) String() string {
	switch p {
	case AwaitingQuality:
		return "awaiting_quality"
	case Enqueued:
		return "enqueued"
	default:
		return "none"
	}
}

// Conversation is the per-chat state between a link command and job completion.
type Conversation struct {
	Pending Pending
	Kind    models.JobKind
	Title   string
	Tracks  []models.TrackRef
	Bitrate models.Bitrate
	JobID   string
}

// ConversationStore is a mutex-guarded map of conversation id to [Conversation].
//
// A conversation moves None → AwaitingQuality on a successful lookup, AwaitingQuality → Enqueued
// when a bitrate is chosen, and back to None once its job finishes.
type ConversationStore struct {
	mu      sync.Mutex
	entries map[int64]*Conversation
}

// NewConversationStore returns an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{entries: make(map[int64]*Conversation)}
}

// Await records looked-up tracks for id, replacing an earlier un-confirmed request.
//
// It fails with [shared.ErrRequestInProgress] while a job for id is queued or running.
func (s *ConversationStore) Await(id int64, kind models.JobKind, title string, tracks []models.TrackRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.entries[id]; ok && c.Pending == Enqueued {
		return shared.ErrRequestInProgress
	}

	cp := make([]models.TrackRef, len(tracks))
	copy(cp, tracks)
	s.entries[id] = &Conversation{Pending: AwaitingQuality, Kind: kind, Title: title, Tracks: cp}
	return nil
}

// Begin atomically attaches bitrate and jobID to an awaiting conversation and marks it enqueued.
//
// The returned snapshot is safe to hand to a job. A second call for the same request fails with
// [shared.ErrNoPendingRequest].
func (s *ConversationStore) Begin(id int64, bitrate models.Bitrate, jobID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[id]
	if !ok || c.Pending != AwaitingQuality {
		return Conversation{}, fmt.Errorf("%w for conversation %d", shared.ErrNoPendingRequest, id)
	}

	c.Pending = Enqueued
	c.Bitrate = bitrate
	c.JobID = jobID

	snapshot := *c
	snapshot.Tracks = make([]models.TrackRef, len(c.Tracks))
	copy(snapshot.Tracks, c.Tracks)
	return snapshot, nil
}

// Release drops an enqueued conversation back to awaiting, used when the job could not be queued.
func (s *ConversationStore) Release(id int64, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.entries[id]; ok && c.JobID == jobID {
		c.Pending = AwaitingQuality
		c.JobID = ""
		c.Bitrate = 0
	}
}

// Complete removes the entry for id if it still belongs to jobID.
func (s *ConversationStore) Complete(id int64, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.entries[id]; ok && c.JobID == jobID {
		delete(s.entries, id)
	}
}

// Get returns a copy of the entry for id.
func (s *ConversationStore) Get(id int64) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.entries[id]
	if !ok {
		return Conversation{Pending: PendingNone}, false
	}
	return *c, true
}

// Len returns the number of tracked conversations.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
