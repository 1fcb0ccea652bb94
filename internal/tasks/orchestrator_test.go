package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
	tu "github.com/desertthunder/tamer/internal/testing"
)

const (
	trackLink    = "https://open.spotify.com/track/trk1?si=abc"
	playlistLink = "https://open.spotify.com/playlist/pl1"
	albumLink    = "https://open.spotify.com/album/al1"
)

type mockHistory struct {
	mu      sync.Mutex
	results []models.JobResult
	err     error
}

func (m *mockHistory) RecordJob(ctx context.Context, result models.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return m.err
}

type harness struct {
	orch      *Orchestrator
	transport *tu.MockTransport
	catalog   *tu.MockCatalog
	primary   *mockPrimary
	secondary *mockSecondary
	fetcher   *mockFetcher
	history   *mockHistory
	progress  chan ProgressUpdate
	dir       string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: &tu.MockTransport{},
		catalog: &tu.MockCatalog{
			Tracks: map[string]models.TrackRef{"trk1": {Title: "Yesterday", Artist: "Beatles"}},
			Playlists: map[string][]models.TrackRef{
				"pl1":   {{Title: "One", Artist: "A"}, {Title: "Two", Artist: "B"}, {Title: "Three", Artist: "C"}},
				"empty": {},
				"dupes": {{Title: "Intro", Artist: "A"}, {Title: "Intro", Artist: "B"}},
			},
			Albums: map[string][]models.TrackRef{"al1": {{Title: "Side A", Artist: "D"}, {Title: "Side B", Artist: "D"}}},
		},
		primary:   &mockPrimary{},
		secondary: &mockSecondary{results: []models.VideoResult{{SourceID: "vid1", Title: "whatever"}}},
		fetcher:   &mockFetcher{},
		history:   &mockHistory{},
		progress:  make(chan ProgressUpdate, 256),
		dir:       t.TempDir(),
	}

	logger := quietLogger()
	h.orch = NewOrchestrator(OrchestratorOpts{
		Catalog:   h.catalog,
		Resolver:  NewResolver(ResolverOpts{Primary: h.primary, Secondary: h.secondary, Logger: logger}),
		Executor:  NewExecutor(h.fetcher, h.dir),
		Transport: h.transport,
		History:   h.history,
		Progress:  h.progress,
		Logger:    logger,
	})
	return h
}

// request runs a link command and a bitrate press, returning the keyboard message id.
func (h *harness) request(t *testing.T, chat int64, link string, b models.Bitrate) int {
	t.Helper()
	if err := h.orch.OnLinkCommand(context.Background(), chat, 10, link); err != nil {
		t.Fatalf("OnLinkCommand: %v", err)
	}
	choice, ok := h.transport.LastChoice()
	if !ok {
		t.Fatal("expected a quality keyboard")
	}
	if err := h.orch.OnBitrateSelected(context.Background(), chat, choice.MessageID, b); err != nil {
		t.Fatalf("OnBitrateSelected: %v", err)
	}
	return choice.MessageID
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	if err := h.orch.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
}

func failFor(title string, times int) func(int, models.OutputSpec) error {
	var mu sync.Mutex
	seen := 0
	return func(_ int, spec models.OutputSpec) error {
		if spec.Tags.Title != title {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		seen++
		if times < 0 || seen <= times {
			return errBackend
		}
		return nil
	}
}

func TestOnLinkCommand(t *testing.T) {
	t.Run("missing link", func(t *testing.T) {
		h := newHarness(t)
		err := h.orch.OnLinkCommand(context.Background(), 1, 10, "  ")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if !h.transport.HasText("in the format: /download playlist_or_track_link") {
			t.Errorf("expected usage hint, got %v", h.transport.Texts(""))
		}
		if h.catalog.Calls != 0 {
			t.Error("catalog must not be called")
		}
	})

	t.Run("unrecognised link", func(t *testing.T) {
		h := newHarness(t)
		err := h.orch.OnLinkCommand(context.Background(), 1, 10, "https://example.com/track/1")
		if !errors.Is(err, shared.ErrLinkClassification) {
			t.Errorf("expected ErrLinkClassification, got %v", err)
		}
		if !h.transport.HasText("Please send a valid Spotify playlist or track link.") {
			t.Errorf("expected invalid link reply, got %v", h.transport.Texts(""))
		}
		if h.catalog.Calls != 0 {
			t.Error("catalog must not be called")
		}
	})

	t.Run("track link", func(t *testing.T) {
		h := newHarness(t)
		if err := h.orch.OnLinkCommand(context.Background(), 1, 10, trackLink); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		replies := h.transport.Texts("reply")
		if len(replies) != 1 || replies[0] != "Getting track from Spotify: trk1..." {
			t.Errorf("unexpected replies %v", replies)
		}

		choice, _ := h.transport.LastChoice()
		if choice.Text != "Yesterday - Beatles\n\nChoose audio quality:" {
			t.Errorf("unexpected keyboard text %q", choice.Text)
		}
		if len(choice.Choices) != 4 || choice.Choices[0].Data != "bitrate_128" {
			t.Errorf("unexpected choices %+v", choice.Choices)
		}

		c, ok := h.orch.Conversation(1)
		if !ok || c.Pending != AwaitingQuality || c.Kind != models.JobTrack {
			t.Errorf("unexpected state %+v", c)
		}
	})

	t.Run("playlist link", func(t *testing.T) {
		h := newHarness(t)
		if err := h.orch.OnLinkCommand(context.Background(), 1, 10, playlistLink); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !h.transport.HasText("Getting playlist from Spotify: pl1...") {
			t.Error("expected playlist fetch reply")
		}
		choice, _ := h.transport.LastChoice()
		want := "1. One - A\n2. Two - B\n3. Three - C\n\nChoose audio quality:"
		if choice.Text != want {
			t.Errorf("keyboard text = %q, want %q", choice.Text, want)
		}

		c, _ := h.orch.Conversation(1)
		if c.Kind != models.JobCollection || len(c.Tracks) != 3 || c.Tracks[2].Position != 3 {
			t.Errorf("unexpected state %+v", c)
		}
	})

	t.Run("album link uses album tracks", func(t *testing.T) {
		h := newHarness(t)
		if err := h.orch.OnLinkCommand(context.Background(), 1, 10, albumLink); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c, _ := h.orch.Conversation(1)
		if c.Title != "album al1" || len(c.Tracks) != 2 {
			t.Errorf("unexpected state %+v", c)
		}
	})

	t.Run("metadata failure", func(t *testing.T) {
		h := newHarness(t)
		h.catalog.Err = errors.New("spotify API error: status 404")

		err := h.orch.OnLinkCommand(context.Background(), 1, 10, playlistLink)
		if !errors.Is(err, shared.ErrMetadataFetch) {
			t.Errorf("expected ErrMetadataFetch, got %v", err)
		}
		if !h.transport.HasText("Something went wrong: spotify API error: status 404") {
			t.Errorf("expected error reply, got %v", h.transport.Texts(""))
		}
		if _, ok := h.orch.Conversation(1); ok {
			t.Error("no state should be stored on failure")
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		h := newHarness(t)
		err := h.orch.OnLinkCommand(context.Background(), 1, 10, "https://open.spotify.com/playlist/empty")
		if !errors.Is(err, shared.ErrMetadataFetch) {
			t.Errorf("expected ErrMetadataFetch, got %v", err)
		}
		if _, ok := h.transport.LastChoice(); ok {
			t.Error("no keyboard for an empty playlist")
		}
	})

	t.Run("refused while a job is queued", func(t *testing.T) {
		h := newHarness(t)
		h.request(t, 1, trackLink, models.Bitrate192)

		err := h.orch.OnLinkCommand(context.Background(), 1, 11, playlistLink)
		if !errors.Is(err, shared.ErrRequestInProgress) {
			t.Errorf("expected ErrRequestInProgress, got %v", err)
		}
		if h.orch.queue.Len() != 1 {
			t.Errorf("expected one queued job, got %d", h.orch.queue.Len())
		}
	})
}

func TestOnBitrateSelected(t *testing.T) {
	t.Run("stray press is rejected", func(t *testing.T) {
		h := newHarness(t)
		err := h.orch.OnBitrateSelected(context.Background(), 1, 5, models.Bitrate320)
		if !errors.Is(err, shared.ErrNoPendingRequest) {
			t.Errorf("expected ErrNoPendingRequest, got %v", err)
		}
		if h.orch.queue.Len() != 0 {
			t.Error("nothing should be enqueued")
		}
		if !h.transport.HasText("Send /download with a link first") {
			t.Errorf("expected a hint, got %v", h.transport.Texts(""))
		}
	})

	t.Run("double press enqueues once", func(t *testing.T) {
		h := newHarness(t)
		msgID := h.request(t, 1, trackLink, models.Bitrate192)

		err := h.orch.OnBitrateSelected(context.Background(), 1, msgID, models.Bitrate192)
		if !errors.Is(err, shared.ErrNoPendingRequest) {
			t.Errorf("expected ErrNoPendingRequest, got %v", err)
		}
		if h.orch.queue.Len() != 1 {
			t.Errorf("expected one job, got %d", h.orch.queue.Len())
		}
	})

	t.Run("invalid bitrate", func(t *testing.T) {
		h := newHarness(t)
		h.orch.OnLinkCommand(context.Background(), 1, 10, trackLink)
		if err := h.orch.OnBitrateSelected(context.Background(), 1, 2, models.Bitrate(100)); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if c, _ := h.orch.Conversation(1); c.Pending != AwaitingQuality {
			t.Error("an invalid press must leave the request pending")
		}
	})

	t.Run("confirms quality and queue position", func(t *testing.T) {
		h := newHarness(t)
		msgID := h.request(t, 1, trackLink, models.Bitrate256)

		var edited bool
		for _, e := range h.transport.Events() {
			if e.Kind == "edit" && e.MessageID == msgID && e.Text == "Yesterday - Beatles\n\nYour audio quality: 256 Kbps." {
				edited = true
			}
		}
		if !edited {
			t.Errorf("expected keyboard message to be edited, got %+v", h.transport.Events())
		}
		if !h.transport.HasText("Your request is in the queue. Please wait...") {
			t.Error("expected queue acknowledgement")
		}

		h.request(t, 2, playlistLink, models.Bitrate128)
		if !h.transport.HasText("1 request(s) ahead of yours") {
			t.Errorf("expected queue position for the second conversation, got %v", h.transport.Texts("send"))
		}
	})

	t.Run("closed queue releases the request", func(t *testing.T) {
		h := newHarness(t)
		h.orch.OnLinkCommand(context.Background(), 1, 10, trackLink)
		h.orch.Close()

		if err := h.orch.OnBitrateSelected(context.Background(), 1, 2, models.Bitrate128); !errors.Is(err, shared.ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
		if c, _ := h.orch.Conversation(1); c.Pending != AwaitingQuality {
			t.Errorf("expected request to be pending again, got %s", c.Pending)
		}
	})
}

func TestProcessTrackJob(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness(t)
		h.request(t, 1, trackLink, models.Bitrate192)
		h.drain(t)

		want := filepath.Join(h.dir, "Yesterday.mp3")
		files := h.transport.Files()
		if len(files) != 1 || files[0] != want {
			t.Fatalf("files = %v, want [%s]", files, want)
		}
		tu.AssertFileMissing(t, want)

		if h.fetcher.urls[0] != "https://www.youtube.com/watch?v=vid1" {
			t.Errorf("unexpected source %q", h.fetcher.urls[0])
		}
		if h.fetcher.specs[0].Bitrate != models.Bitrate192 {
			t.Errorf("unexpected bitrate %d", h.fetcher.specs[0].Bitrate)
		}

		if !h.transport.HasText("Downloading Yesterday by Beatles...") {
			t.Error("expected a downloading message")
		}
		if !h.transport.HasText("Yesterday by Beatles downloaded successfully!") {
			t.Error("expected a success edit")
		}
		replies := h.transport.Texts("reply")
		if replies[len(replies)-1] != "Download completed!" {
			t.Errorf("expected completion reply, got %v", replies)
		}

		if _, ok := h.orch.Conversation(1); ok {
			t.Error("state should be cleared")
		}
		if len(h.history.results) != 1 || h.history.results[0].State() != models.JobCompleted {
			t.Errorf("expected a completed history entry, got %+v", h.history.results)
		}
	})

	t.Run("four failures then success", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.fail = failFor("Yesterday", 4)
		h.request(t, 1, trackLink, models.Bitrate192)
		h.drain(t)

		if h.fetcher.calls() != 5 {
			t.Errorf("expected 5 fetch attempts, got %d", h.fetcher.calls())
		}
		if len(h.transport.Files()) != 1 {
			t.Errorf("expected the file to be delivered, got %v", h.transport.Files())
		}
		outcome := h.history.results[0].Outcomes[0]
		if outcome.Err != nil || outcome.Attempts != 5 {
			t.Errorf("unexpected outcome %+v", outcome)
		}
		if h.primary.calls() != 5 || h.secondary.calls() != 5 {
			t.Errorf("expected resolution on every attempt, got primary=%d secondary=%d", h.primary.calls(), h.secondary.calls())
		}
	})

	t.Run("always failing", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.fail = failFor("Yesterday", -1)
		h.request(t, 1, trackLink, models.Bitrate192)
		h.drain(t)

		if h.fetcher.calls() != 5 {
			t.Errorf("expected exactly 5 attempts, got %d", h.fetcher.calls())
		}
		if len(h.transport.Files()) != 0 {
			t.Error("nothing should be delivered")
		}
		if !h.transport.HasText("Failed to download Yesterday by Beatles.") {
			t.Errorf("expected failure message, got %v", h.transport.Texts(""))
		}
		if h.transport.HasText("Download completed!") {
			t.Error("no completion reply for a failed track")
		}
		if _, ok := h.orch.Conversation(1); ok {
			t.Error("state should be cleared after a failure")
		}

		outcome := h.history.results[0].Outcomes[0]
		if !errors.Is(outcome.Err, shared.ErrExhaustedRetries) || !errors.Is(outcome.Err, shared.ErrDownloadFailed) {
			t.Errorf("unexpected outcome error %v", outcome.Err)
		}
		if h.history.results[0].State() != models.JobFailed {
			t.Errorf("expected failed job, got %s", h.history.results[0].State())
		}
	})

	t.Run("unresolvable track consumes attempts", func(t *testing.T) {
		h := newHarness(t)
		h.secondary.results = nil
		h.request(t, 1, trackLink, models.Bitrate192)
		h.drain(t)

		if h.fetcher.calls() != 0 {
			t.Errorf("nothing should be fetched, got %d", h.fetcher.calls())
		}
		if h.secondary.calls() != 5 {
			t.Errorf("expected 5 resolution attempts, got %d", h.secondary.calls())
		}
		if !errors.Is(h.history.results[0].Outcomes[0].Err, shared.ErrResolutionFailed) {
			t.Errorf("expected ErrResolutionFailed, got %v", h.history.results[0].Outcomes[0].Err)
		}
	})
}

func TestProcessPlaylistJob(t *testing.T) {
	t.Run("middle track always failing", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.fail = failFor("Two", -1)
		h.request(t, 1, playlistLink, models.Bitrate320)
		h.drain(t)

		files := h.transport.Files()
		want := []string{filepath.Join(h.dir, "One.mp3"), filepath.Join(h.dir, "Three.mp3")}
		if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
			t.Fatalf("files = %v, want %v", files, want)
		}
		for _, f := range want {
			tu.AssertFileMissing(t, f)
		}

		if h.fetcher.callsFor("Two") != 5 || h.fetcher.callsFor("One") != 1 || h.fetcher.callsFor("Three") != 1 {
			t.Errorf("unexpected attempt counts: one=%d two=%d three=%d",
				h.fetcher.callsFor("One"), h.fetcher.callsFor("Two"), h.fetcher.callsFor("Three"))
		}

		if !h.transport.HasText("Failed to download Two by B. Skipping.") {
			t.Error("expected skip message")
		}
		if !h.transport.HasText("Downloading Three by C...\n3/3") {
			t.Error("expected progress for the last track")
		}
		if !h.transport.HasText("Downloaded 2 of 3 tracks. 1 failed.") {
			t.Errorf("expected summary, got %v", h.transport.Texts("edit"))
		}
		if !h.transport.HasText("Download completed!") {
			t.Error("expected completion reply")
		}
		if _, ok := h.orch.Conversation(1); ok {
			t.Error("state should be cleared")
		}
		if h.history.results[0].State() != models.JobPartiallyFailed {
			t.Errorf("expected partially failed, got %s", h.history.results[0].State())
		}

		h.fetcher.fail = nil
		h.request(t, 1, trackLink, models.Bitrate128)
		h.drain(t)
		if len(h.history.results) != 2 || h.history.results[1].State() != models.JobCompleted {
			t.Error("worker should keep processing after a partial failure")
		}
	})

	t.Run("all tracks succeed", func(t *testing.T) {
		h := newHarness(t)
		h.request(t, 1, playlistLink, models.Bitrate128)
		h.drain(t)

		if len(h.transport.Files()) != 3 {
			t.Errorf("expected 3 files, got %v", h.transport.Files())
		}
		if !h.transport.HasText("All 3 tracks downloaded successfully!") {
			t.Error("expected success summary")
		}
	})

	t.Run("duplicate titles get distinct files", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.body = func(spec models.OutputSpec) string { return spec.Tags.Artist }
		var contents []string
		h.transport.OnFile = func(path string) {
			contents = append(contents, tu.MustReadFile(t, path))
		}
		h.request(t, 1, "https://open.spotify.com/playlist/dupes", models.Bitrate192)
		h.drain(t)

		files := h.transport.Files()
		want := []string{filepath.Join(h.dir, "Intro.mp3"), filepath.Join(h.dir, "Intro (2).mp3")}
		if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
			t.Fatalf("files = %v, want %v", files, want)
		}
		if len(contents) != 2 || contents[0] != "A" || contents[1] != "B" {
			t.Errorf("each upload should carry its own track, got %v", contents)
		}
		if h.fetcher.specs[1].Tags.Title != "Intro" {
			t.Errorf("tags should keep the catalog title, got %q", h.fetcher.specs[1].Tags.Title)
		}
		if !h.transport.HasText("All 2 tracks downloaded successfully!") {
			t.Errorf("expected success summary, got %v", h.transport.Texts("edit"))
		}
		for _, f := range want {
			tu.AssertFileMissing(t, f)
		}
	})

	t.Run("failed upload marks the track failed", func(t *testing.T) {
		h := newHarness(t)
		h.transport.FileErr = errors.New("file too big")
		h.request(t, 1, playlistLink, models.Bitrate128)
		h.drain(t)

		if len(h.transport.Files()) != 3 {
			t.Fatalf("expected every upload to be tried, got %v", h.transport.Files())
		}
		result := h.history.results[0]
		if result.Failed() != 3 || result.State() != models.JobFailed {
			t.Errorf("expected every track failed, got failed=%d state=%s", result.Failed(), result.State())
		}
		for _, o := range result.Outcomes {
			if !errors.Is(o.Err, shared.ErrDeliveryFailed) || o.Status() != models.TrackFailed {
				t.Errorf("unexpected outcome %+v", o)
			}
		}
		if !h.transport.HasText("Downloaded 0 of 3 tracks. 3 failed.") {
			t.Errorf("expected failure summary, got %v", h.transport.Texts("edit"))
		}
		if h.transport.HasText("All 3 tracks downloaded successfully!") {
			t.Error("summary must not claim success")
		}
		if !h.transport.HasText("Failed to download One by A.") {
			t.Error("expected a per-track failure message")
		}
	})

	t.Run("jobs run in enqueue order", func(t *testing.T) {
		h := newHarness(t)
		h.request(t, 1, playlistLink, models.Bitrate128)
		h.request(t, 2, trackLink, models.Bitrate128)
		h.drain(t)

		if len(h.history.results) != 2 {
			t.Fatalf("expected two jobs, got %d", len(h.history.results))
		}
		if h.history.results[0].Job.ConversationID != 1 || h.history.results[1].Job.ConversationID != 2 {
			t.Error("jobs should finish in FIFO order")
		}

		var convs []int64
		for _, e := range h.transport.Events() {
			if e.Kind == "file" {
				convs = append(convs, e.ConversationID)
			}
		}
		if len(convs) != 4 || convs[3] != 2 {
			t.Errorf("unexpected delivery order %v", convs)
		}
	})
}

func TestProcessResilience(t *testing.T) {
	t.Run("panicking backend", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.panic = true
		h.request(t, 1, playlistLink, models.Bitrate128)
		h.drain(t)

		if h.fetcher.calls() != 15 {
			t.Errorf("expected every attempt to be made, got %d", h.fetcher.calls())
		}
		if _, ok := h.orch.Conversation(1); ok {
			t.Error("state should be cleared")
		}
		if len(h.history.results) != 1 || h.history.results[0].Failed() != 3 {
			t.Errorf("unexpected history %+v", h.history.results)
		}
	})

	t.Run("transport failures do not abort", func(t *testing.T) {
		h := newHarness(t)
		h.orch.OnLinkCommand(context.Background(), 1, 10, trackLink)
		choice, _ := h.transport.LastChoice()
		h.orch.OnBitrateSelected(context.Background(), 1, choice.MessageID, models.Bitrate128)

		h.transport.Err = errors.New("telegram down")
		h.drain(t)

		if h.fetcher.calls() != 1 {
			t.Errorf("expected the track to be fetched, got %d", h.fetcher.calls())
		}
		tu.AssertFileMissing(t, filepath.Join(h.dir, "Yesterday.mp3"))
		if len(h.history.results) != 1 {
			t.Error("job should complete")
		}
	})

	t.Run("history failure is ignored", func(t *testing.T) {
		h := newHarness(t)
		h.history.err = errors.New("disk full")
		h.request(t, 1, trackLink, models.Bitrate128)
		h.drain(t)
		if len(h.transport.Files()) != 1 {
			t.Error("delivery should not depend on history")
		}
	})

	t.Run("cancelled context skips remaining tracks", func(t *testing.T) {
		h := newHarness(t)
		h.request(t, 1, playlistLink, models.Bitrate128)

		ctx, cancel := context.WithCancel(context.Background())
		h.fetcher.fail = func(call int, spec models.OutputSpec) error {
			cancel()
			return nil
		}
		h.orch.queue.Drain(context.Background(), func(_ context.Context, job models.DownloadJob) {
			h.orch.process(ctx, job)
		})

		if h.fetcher.calls() != 1 {
			t.Errorf("expected one fetch before cancellation, got %d", h.fetcher.calls())
		}
		if _, ok := h.orch.Conversation(1); ok {
			t.Error("state should be cleared")
		}
		outcomes := h.history.results[0].Outcomes
		if got := h.history.results[0].Failed(); got != 3 {
			t.Errorf("expected 2 skipped tracks and 1 undelivered, got %d failed", got)
		}
		if !errors.Is(outcomes[0].Err, shared.ErrDeliveryFailed) {
			t.Errorf("expected the fetched track to be undelivered, got %v", outcomes[0].Err)
		}
		tu.AssertFileMissing(t, filepath.Join(h.dir, "One.mp3"))
	})

	t.Run("progress updates", func(t *testing.T) {
		h := newHarness(t)
		h.request(t, 1, trackLink, models.Bitrate128)
		h.drain(t)
		close(h.progress)

		var phases []Phase
		for u := range h.progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 || phases[0] != FetchMetadata || phases[len(phases)-1] != JobFinished {
			t.Errorf("unexpected phases %v", phases)
		}
	})
}

func TestOnStart(t *testing.T) {
	h := newHarness(t)
	if err := h.orch.OnStart(context.Background(), 1, 3, "Ada"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := h.transport.Texts("")
	if len(texts) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(texts))
	}
	if !strings.HasPrefix(texts[0], "Hello Ada!") {
		t.Errorf("unexpected welcome %q", texts[0])
	}
	if !strings.Contains(texts[1], "Important Notice") {
		t.Errorf("unexpected notice %q", texts[1])
	}
	if !strings.Contains(texts[2], "/download playlist_link") {
		t.Errorf("unexpected usage %q", texts[2])
	}
}
