// package formatter renders track listings and download history as CSV, JSON, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// Format names an output encoding for history exports.
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "txt", "text", "csv" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

const timeLayout = "2006-01-02 15:04:05"

// HistoryToCSV converts download records to CSV with a header row.
func HistoryToCSV(records []models.DownloadRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Job", "Position", "Title", "Artist", "Bitrate", "Status", "Attempts", "Source", "Error", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			strconv.Itoa(r.Sequence),
			r.JobID,
			strconv.Itoa(r.Position),
			r.Title,
			r.Artist,
			strconv.Itoa(int(r.Bitrate)),
			string(r.Status),
			strconv.Itoa(r.Attempts),
			r.SourceID,
			r.Error,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToText renders one line per download, newest as given.
func HistoryToText(records []models.DownloadRecord) []byte {
	var buf bytes.Buffer
	if len(records) == 0 {
		buf.WriteString("No downloads recorded.\n")
		return buf.Bytes()
	}

	for _, r := range records {
		mark := "✓"
		if r.Status == models.TrackFailed {
			mark = "✗"
		}
		fmt.Fprintf(&buf, "%s %s  %s - %s [%s]", mark, r.CreatedAt.Local().Format(timeLayout), r.Artist, r.Title, r.Bitrate.Label())
		if r.Error != "" {
			fmt.Fprintf(&buf, ": %s", r.Error)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// HistoryToJSON renders records as an indented JSON array.
func HistoryToJSON(records []models.DownloadRecord) ([]byte, error) {
	if records == nil {
		records = []models.DownloadRecord{}
	}
	return shared.MarshalJSON(records, true)
}

// ExportHistory dispatches to the renderer for format.
func ExportHistory(records []models.DownloadRecord, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return HistoryToCSV(records)
	case FormatJSON:
		return HistoryToJSON(records)
	case FormatText, "":
		return HistoryToText(records), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// JobsToText summarises finished jobs one per line.
func JobsToText(jobs []models.JobRecord) []byte {
	var buf bytes.Buffer
	if len(jobs) == 0 {
		buf.WriteString("No jobs recorded.\n")
		return buf.Bytes()
	}

	for _, j := range jobs {
		fmt.Fprintf(&buf, "%s  %-16s %s %q: %d/%d delivered [%s]\n",
			j.FinishedAt.Local().Format(timeLayout),
			j.State,
			j.Kind,
			j.Title,
			j.Total-j.Failed,
			j.Total,
			j.Bitrate.Label(),
		)
	}
	return buf.Bytes()
}

// TrackListToText renders a titled, numbered track list.
func TrackListToText(title string, tracks []models.TrackRef) []byte {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "%s\n", title)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes()
}

// TrackListToMarkdown renders a track list under a level-one heading.
func TrackListToMarkdown(title string, tracks []models.TrackRef) []byte {
	var buf bytes.Buffer

	if title == "" {
		title = "Tracks"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return buf.Bytes()
}

// WriteExport writes data to path, or returns false when path is empty so the caller can print instead.
func WriteExport(path string, data []byte) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
