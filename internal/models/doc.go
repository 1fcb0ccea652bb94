// Package models defines the domain entities of the tamer download bot.
//
// The package contains three categories of types:
//
// 1. Inputs: what a user asks for
//   - [Link] : A classified streaming-catalog URL (track, playlist or album)
//   - [TrackRef] : Title and primary artist of a requested track
//   - [Bitrate] : One of the four supported MP3 bitrates
//
// 2. Work items: what the queue carries between the chat front-end and the worker
//   - [DownloadJob] : A confirmed request, immutable once enqueued
//   - [OutputSpec] : Where and how the fetch backend writes a track
//
// 3. Results: what the worker reports back
//   - [Candidate] : A search hit that may stand in for a [TrackRef]
//   - [TrackOutcome] : Per-track result inside a job
//   - [JobResult] : Summary of a finished job
//   - [DownloadRecord] : A persisted [TrackOutcome] read back from history
package models
