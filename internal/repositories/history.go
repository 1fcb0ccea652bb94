package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

const downloadsSequence = "downloads"

// HistoryRepository records finished jobs. It implements tasks.HistoryRecorder.
type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// RecordJob inserts the job row and one downloads row per outcome, all or nothing.
func (r *HistoryRepository) RecordJob(ctx context.Context, result models.JobResult) error {
	finishedAt := result.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = r.now()
	}
	finishedAt = finishedAt.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	job := result.Job
	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (id, conversation_id, kind, title, bitrate, total, failed, state, enqueued_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		job.ConversationID,
		job.Kind.String(),
		job.Title,
		int(job.Bitrate),
		len(result.Outcomes),
		result.Failed(),
		string(result.State()),
		job.EnqueuedAt.UTC(),
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	for _, o := range result.Outcomes {
		sequence, err := nextSequence(ctx, tx, downloadsSequence)
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		var sourceID, errorMessage any
		if o.SourceID != "" {
			sourceID = o.SourceID
		}
		if o.Err != nil {
			errorMessage = o.Err.Error()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO downloads (id, sequence, job_id, conversation_id, position, title, artist, bitrate, source_id, status, attempts, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			shared.GenerateID(),
			sequence,
			job.ID,
			job.ConversationID,
			o.Track.Position,
			o.Track.Title,
			o.Track.Artist,
			int(job.Bitrate),
			sourceID,
			string(o.Status()),
			o.Attempts,
			errorMessage,
			finishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert download: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

const downloadColumns = `id, sequence, job_id, conversation_id, position, title, artist, bitrate, source_id, status, attempts, error, created_at`

// ListDownloads returns the most recent downloads first. A limit of zero or less returns everything.
func (r *HistoryRepository) ListDownloads(ctx context.Context, limit int) ([]models.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.queryDownloads(ctx, query, args...)
}

// DownloadsForJob returns the outcomes of one job in track order.
func (r *HistoryRepository) DownloadsForJob(ctx context.Context, jobID string) ([]models.DownloadRecord, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE job_id = ? ORDER BY sequence ASC`
	return r.queryDownloads(ctx, query, jobID)
}

// ListJobs returns the most recently finished jobs first. A limit of zero or less returns everything.
func (r *HistoryRepository) ListJobs(ctx context.Context, limit int) ([]models.JobRecord, error) {
	query := `
		SELECT id, conversation_id, kind, title, bitrate, total, failed, state, enqueued_at, finished_at
		FROM jobs
		ORDER BY finished_at DESC, id ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobRecord
	for rows.Next() {
		var (
			j       models.JobRecord
			bitrate int
			state   string
		)
		if err := rows.Scan(&j.ID, &j.ConversationID, &j.Kind, &j.Title, &bitrate, &j.Total, &j.Failed, &state, &j.EnqueuedAt, &j.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.Bitrate = models.Bitrate(bitrate)
		j.State = models.JobState(state)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

func (r *HistoryRepository) queryDownloads(ctx context.Context, query string, args ...any) ([]models.DownloadRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var records []models.DownloadRecord
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating downloads: %w", err)
	}
	return records, nil
}

// scanDownload scans a row from [sql.Rows] into a [models.DownloadRecord]
func scanDownload(rows *sql.Rows) (models.DownloadRecord, error) {
	var (
		rec          models.DownloadRecord
		bitrate      int
		status       string
		sourceID     sql.NullString
		errorMessage sql.NullString
	)
	err := rows.Scan(
		&rec.ID,
		&rec.Sequence,
		&rec.JobID,
		&rec.ConversationID,
		&rec.Position,
		&rec.Title,
		&rec.Artist,
		&bitrate,
		&sourceID,
		&status,
		&rec.Attempts,
		&errorMessage,
		&rec.CreatedAt,
	)
	if err != nil {
		return models.DownloadRecord{}, fmt.Errorf("failed to scan download: %w", err)
	}

	rec.Bitrate = models.Bitrate(bitrate)
	rec.Status = models.TrackStatus(status)
	rec.SourceID = sourceID.String
	rec.Error = errorMessage.String
	return rec, nil
}
