// Package media turns a resolved source URL into a tagged MP3 on disk.
//
// [YtdlpBackend] drives yt-dlp (via go-ytdlp) to fetch the best audio stream and transcode it
// with ffmpeg at the requested bitrate. [Tagger] then writes ID3v2 title and artist frames.
//
// Both yt-dlp and ffmpeg must be on PATH, unless the backend is configured with an explicit
// executable or asked to install yt-dlp on first use.
package media
