// Package tasks turns catalog links into delivered MP3 files.
//
// # Flow
//
// The [Orchestrator] receives chat events from a transport:
//
//  1. [Orchestrator.OnLinkCommand] : classify the link, fetch track metadata
//     from the [Catalog] and ask for a bitrate
//  2. [Orchestrator.OnBitrateSelected] : consume the pending request and
//     enqueue a [models.DownloadJob]
//  3. [Queue.Run] : a single worker takes jobs in FIFO order, resolves each
//     track with the [Resolver], fetches it through the [Executor] and hands
//     finished files to the [Transport]
//
// # Conversation State
//
// [ConversationStore] holds at most one pending request per conversation.
// A second link while one is awaiting a choice or queued is refused, and a
// bitrate choice without a pending request is rejected.
//
// # Resolution
//
// The [Resolver] asks the [PrimarySearch] backend first and scores candidates
// with the match engine. When nothing clears the threshold it takes the first
// [SecondarySearch] result. Both backends share one rate limiter.
//
// # Retries
//
// Each track gets up to the configured number of attempts. An attempt covers
// resolution and download; a failed track is reported and the job moves on.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct carries phase, step counters and a message.
// Updates use select with default so a slow reader never stalls the worker.
package tasks
