package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tamer/internal/formatter"
	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/repositories"
)

// HistoryList prints recent per-track outcomes in the requested format.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repositories.NewHistoryRepository(db).ListDownloads(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	data, err := formatter.ExportHistory(records, format)
	if err != nil {
		return fmt.Errorf("failed to format history: %w", err)
	}

	wrote, err := formatter.WriteExport(cmd.String("output"), data)
	if err != nil {
		return err
	}
	if wrote {
		r.logger.Info("history exported", "path", cmd.String("output"), "rows", len(records))
		return nil
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// HistoryJobs prints one line per finished job.
func (r *Runner) HistoryJobs(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := repositories.NewHistoryRepository(db).ListJobs(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if jobs == nil {
			jobs = []models.JobRecord{}
		}
		return r.writeJSON(jobs, true)
	}
	if _, err := r.output.Write(formatter.JobsToText(jobs)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
