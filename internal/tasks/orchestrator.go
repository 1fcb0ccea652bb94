package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// DefaultAttempts is the number of resolve+fetch attempts per track.
const DefaultAttempts = 5

// Orchestrator turns chat events into download jobs and processes them one at a time.
type Orchestrator struct {
	catalog        Catalog
	resolver       *Resolver
	executor       *Executor
	transport      Transport
	history        HistoryRecorder
	queue          *Queue
	store          *ConversationStore
	progress       chan<- ProgressUpdate
	attempts       int
	attemptTimeout time.Duration
	retryDelay     time.Duration
	logger         *log.Logger
	now            func() time.Time
}

// OrchestratorOpts configures an [Orchestrator].
//
// History and Progress are optional. A zero Attempts uses [DefaultAttempts].
type OrchestratorOpts struct {
	Catalog        Catalog
	Resolver       *Resolver
	Executor       *Executor
	Transport      Transport
	History        HistoryRecorder
	Queue          *Queue
	Store          *ConversationStore
	Progress       chan<- ProgressUpdate
	Attempts       int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	Logger         *log.Logger
}

// NewOrchestrator wires an orchestrator, creating an empty queue and store when none are given.
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Queue == nil {
		opts.Queue = NewQueue(opts.Logger)
	}
	if opts.Store == nil {
		opts.Store = NewConversationStore()
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	return &Orchestrator{
		catalog:        opts.Catalog,
		resolver:       opts.Resolver,
		executor:       opts.Executor,
		transport:      opts.Transport,
		history:        opts.History,
		queue:          opts.Queue,
		store:          opts.Store,
		progress:       opts.Progress,
		attempts:       opts.Attempts,
		attemptTimeout: opts.AttemptTimeout,
		retryDelay:     opts.RetryDelay,
		logger:         shared.WithLogger(opts.Logger, "component", "orchestrator"),
		now:            time.Now,
	}
}

// Run drains the queue until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("worker started")
	err := o.queue.Run(ctx, o.process)
	o.logger.Info("worker stopped", "pending", o.queue.Len())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Drain processes every queued job and returns once the queue is empty.
func (o *Orchestrator) Drain(ctx context.Context) error {
	return o.queue.Drain(ctx, o.process)
}

// Close stops accepting new jobs.
func (o *Orchestrator) Close() {
	o.queue.Close()
}

// Conversation exposes the state of a conversation.
func (o *Orchestrator) Conversation(id int64) (Conversation, bool) {
	return o.store.Get(id)
}

// OnStart greets the user and explains how to request a download.
func (o *Orchestrator) OnStart(ctx context.Context, conversationID int64, messageID int, firstName string) error {
	_, err1 := o.transport.ReplyTo(ctx, conversationID, messageID, welcomeMessage(firstName))
	_, err2 := o.transport.SendMessage(ctx, conversationID, noticeText)
	_, err3 := o.transport.SendMessage(ctx, conversationID, usageText)
	return errors.Join(err1, err2, err3)
}

// OnLinkCommand handles "/download <link>". rawLink is everything after the command.
//
// Usage and classification errors are answered immediately, without any network lookup.
// A successful lookup leaves the conversation awaiting a quality choice.
func (o *Orchestrator) OnLinkCommand(ctx context.Context, conversationID int64, messageID int, rawLink string) error {
	rawLink = strings.TrimSpace(rawLink)
	if rawLink == "" {
		o.reply(ctx, conversationID, messageID, msgUsage)
		return fmt.Errorf("%w: link", shared.ErrMissingArgument)
	}

	link, err := models.ParseLink(rawLink)
	if err != nil {
		o.reply(ctx, conversationID, messageID, msgInvalidLink)
		return fmt.Errorf("%w: %v", shared.ErrLinkClassification, err)
	}

	if c, ok := o.store.Get(conversationID); ok && c.Pending == Enqueued {
		o.reply(ctx, conversationID, messageID, msgInProgress)
		return shared.ErrRequestInProgress
	}

	o.reply(ctx, conversationID, messageID, fetchingMessage(link))
	sendProgress(o.progress, fetchMetadataUpdate(link))

	kind, title, tracks, err := o.lookup(ctx, link)
	if err != nil {
		o.reply(ctx, conversationID, messageID, somethingWentWrongMessage(err))
		return fmt.Errorf("%w: %s %s: %w", shared.ErrMetadataFetch, link.Kind, link.ID, err)
	}

	if err := o.store.Await(conversationID, kind, title, tracks); err != nil {
		o.reply(ctx, conversationID, messageID, msgInProgress)
		return err
	}

	if _, err := o.transport.SendChoice(ctx, conversationID, chooseQualityMessage(kind, tracks), models.BitrateChoices()); err != nil {
		o.logger.Error("failed to send quality keyboard", "conversation", conversationID, "error", err)
		return err
	}

	o.logger.Info("awaiting quality", "conversation", conversationID, "kind", kind, "title", title, "tracks", len(tracks))
	return nil
}

// OnBitrateSelected confirms a pending request and enqueues it.
//
// messageID is the message carrying the quality keyboard. Presses without a pending request are
// answered and never enqueue.
func (o *Orchestrator) OnBitrateSelected(ctx context.Context, conversationID int64, messageID int, bitrate models.Bitrate) error {
	if !bitrate.Valid() {
		return fmt.Errorf("%w: bitrate %d", shared.ErrInvalidArgument, bitrate)
	}

	jobID := shared.GenerateID()
	conv, err := o.store.Begin(conversationID, bitrate, jobID)
	if err != nil {
		o.send(ctx, conversationID, msgNoPending)
		return err
	}

	if err := o.transport.EditMessage(ctx, conversationID, messageID, qualitySelectedMessage(conv.Kind, conv.Tracks, bitrate)); err != nil {
		o.logger.Warn("failed to edit quality message", "conversation", conversationID, "error", err)
	}

	job := models.DownloadJob{
		ID:             jobID,
		ConversationID: conversationID,
		Kind:           conv.Kind,
		Title:          conv.Title,
		Tracks:         conv.Tracks,
		Bitrate:        bitrate,
		ReplyTo:        messageID,
		EnqueuedAt:     o.now(),
	}

	ahead, err := o.queue.Enqueue(job)
	if err != nil {
		o.store.Release(conversationID, jobID)
		o.send(ctx, conversationID, somethingWentWrongMessage(err))
		return err
	}

	o.send(ctx, conversationID, queuedMessage(ahead))
	sendProgress(o.progress, queuedUpdate(job, ahead))
	o.logger.Info("job enqueued", "job", jobID, "conversation", conversationID, "bitrate", int(bitrate), "ahead", ahead)
	return nil
}

func (o *Orchestrator) lookup(ctx context.Context, link models.Link) (models.JobKind, string, []models.TrackRef, error) {
	var (
		kind   = models.JobCollection
		title  string
		tracks []models.TrackRef
		err    error
	)

	switch link.Kind {
	case models.LinkTrack:
		var tr models.TrackRef
		kind = models.JobTrack
		if tr, err = o.catalog.Track(ctx, link.ID); err == nil {
			title, tracks = tr.String(), []models.TrackRef{tr}
		}
	case models.LinkPlaylist:
		title, tracks, err = o.catalog.PlaylistTracks(ctx, link.ID)
	case models.LinkAlbum:
		title, tracks, err = o.catalog.AlbumTracks(ctx, link.ID)
	default:
		err = fmt.Errorf("unsupported link kind %s", link.Kind)
	}
	if err != nil {
		return kind, "", nil, err
	}
	if len(tracks) == 0 {
		return kind, "", nil, errors.New(msgEmptyListing)
	}

	for i := range tracks {
		if kind == models.JobTrack {
			tracks[i].Position = 0
		} else {
			tracks[i].Position = i + 1
		}
	}
	return kind, title, tracks, nil
}

// process runs one job to completion. The conversation is released however the job ends.
func (o *Orchestrator) process(ctx context.Context, job models.DownloadJob) {
	defer o.store.Complete(job.ConversationID, job.ID)

	logger := shared.WithLogger(o.logger, "job", job.ID, "conversation", job.ConversationID)
	collection := job.Kind == models.JobCollection
	total := len(job.Tracks)
	result := models.JobResult{Job: job, Outcomes: make([]models.TrackOutcome, 0, total)}

	var progressID int
	if collection {
		progressID = o.send(ctx, job.ConversationID, msgDownloading)
	} else if total > 0 {
		progressID = o.send(ctx, job.ConversationID, downloadingTrackMessage(job.Tracks[0]))
	}

	names := fileNames{}
	for i, tr := range job.Tracks {
		step := i + 1
		if err := ctx.Err(); err != nil {
			result.Outcomes = append(result.Outcomes, models.TrackOutcome{Track: tr, Err: err})
			continue
		}

		if collection {
			o.edit(ctx, job.ConversationID, progressID, progressMessage(tr, step, total))
		}

		outcome := o.downloadTrack(ctx, logger, tr, names.claim(tr.Title), job.Bitrate, step, total)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Err == nil {
			continue
		}

		sendProgress(o.progress, trackFailedUpdate(step, total, outcome))
		if ctx.Err() != nil {
			continue
		}
		if collection {
			o.send(ctx, job.ConversationID, skippedMessage(tr))
		} else {
			o.send(ctx, job.ConversationID, trackFailedMessage(tr))
		}
	}

	o.deliver(ctx, logger, &result)
	result.FinishedAt = o.now()

	if ctx.Err() == nil {
		switch {
		case collection:
			o.edit(ctx, job.ConversationID, progressID, collectionSummaryMessage(result))
		case result.Succeeded() > 0:
			o.edit(ctx, job.ConversationID, progressID, trackDoneMessage(job.Tracks[0]))
		}
	}

	if ctx.Err() == nil && (collection || result.Succeeded() > 0) {
		o.reply(ctx, job.ConversationID, job.ReplyTo, msgCompleted)
	}

	if o.history != nil {
		if err := o.history.RecordJob(context.WithoutCancel(ctx), result); err != nil {
			logger.Warn("failed to record history", "error", err)
		}
	}

	sendProgress(o.progress, jobFinishedUpdate(result))
	logger.Info("job finished", "state", result.State(), "delivered", result.Succeeded(), "failed", result.Failed())
}

// downloadTrack runs up to o.attempts rounds of resolve then fetch, writing to the file for fileName.
func (o *Orchestrator) downloadTrack(ctx context.Context, logger *log.Logger, tr models.TrackRef, fileName string, bitrate models.Bitrate, step, total int) models.TrackOutcome {
	outcome := models.TrackOutcome{Track: tr}

	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		if attempt > 1 && !sleep(ctx, o.retryDelay) {
			break
		}

		outcome.Attempts = attempt
		sendProgress(o.progress, resolveTrackUpdate(step, total, attempt, tr))

		source, path, err := o.attempt(ctx, tr, fileName, bitrate, step, total)
		if err == nil {
			outcome.SourceID, outcome.Path = source, path
			logger.Info("track downloaded", "track", tr, "attempt", attempt, "path", path)
			return outcome
		}

		lastErr = err
		logger.Warn("attempt failed", "track", tr, "attempt", attempt, "max", o.attempts, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	outcome.Err = fmt.Errorf("%w: %s after %d attempt(s): %w", shared.ErrExhaustedRetries, tr, outcome.Attempts, lastErr)
	return outcome
}

// attempt is one resolve+fetch round. A panic in either backend is turned into an error.
func (o *Orchestrator) attempt(ctx context.Context, tr models.TrackRef, fileName string, bitrate models.Bitrate, step, total int) (source, path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during attempt: %v", r)
		}
	}()

	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	source, err = o.resolver.Resolve(ctx, tr)
	if err != nil {
		return "", "", err
	}

	sendProgress(o.progress, downloadTrackUpdate(step, total, tr, source))
	path, err = o.executor.FetchAs(ctx, source, fileName, tr.Title, tr.Artist, bitrate)
	if err != nil {
		return source, "", err
	}
	return source, path, nil
}

// deliver sends each produced file in track order and deletes it afterwards.
// An outcome whose upload fails is marked failed.
func (o *Orchestrator) deliver(ctx context.Context, logger *log.Logger, result *models.JobResult) {
	total := result.Succeeded()
	delivered := 0
	for i := range result.Outcomes {
		outcome := &result.Outcomes[i]
		if outcome.Err != nil || outcome.Path == "" {
			continue
		}
		delivered++

		if err := ctx.Err(); err != nil {
			outcome.Err = fmt.Errorf("%w: %s: %w", shared.ErrDeliveryFailed, outcome.Track, err)
		} else {
			sendProgress(o.progress, deliverFilesUpdate(delivered, total, outcome.Path))
			if err := o.transport.SendFile(ctx, result.Job.ConversationID, outcome.Path); err != nil {
				logger.Error("failed to send file", "path", outcome.Path, "error", err)
				outcome.Err = fmt.Errorf("%w: %s: %w", shared.ErrDeliveryFailed, outcome.Track, err)
				sendProgress(o.progress, trackFailedUpdate(i+1, len(result.Outcomes), *outcome))
				if ctx.Err() == nil {
					o.send(ctx, result.Job.ConversationID, trackFailedMessage(outcome.Track))
				}
			}
		}

		if err := os.Remove(outcome.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove file", "path", outcome.Path, "error", err)
		}
	}
}

func (o *Orchestrator) send(ctx context.Context, conversationID int64, text string) int {
	id, err := o.transport.SendMessage(ctx, conversationID, text)
	if err != nil {
		o.logger.Warn("failed to send message", "conversation", conversationID, "error", err)
	}
	return id
}

func (o *Orchestrator) reply(ctx context.Context, conversationID int64, messageID int, text string) {
	if messageID == 0 {
		o.send(ctx, conversationID, text)
		return
	}
	if _, err := o.transport.ReplyTo(ctx, conversationID, messageID, text); err != nil {
		o.logger.Warn("failed to reply", "conversation", conversationID, "error", err)
	}
}

func (o *Orchestrator) edit(ctx context.Context, conversationID int64, messageID int, text string) {
	if messageID == 0 {
		return
	}
	if err := o.transport.EditMessage(ctx, conversationID, messageID, text); err != nil {
		o.logger.Warn("failed to edit message", "conversation", conversationID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
