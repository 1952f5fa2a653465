// Package archive stores finalized reports in Postgres.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/reportbot/core/logger"
	"github.com/m3rciful/reportbot/survey"
)

// Outcome values stored with each report.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Report is one finalized conversation.
type Report struct {
	ID        uuid.UUID
	UserID    int64
	Session   survey.Session
	Outcome   string
	Err       error
	CreatedAt time.Time
}

// Row is the reports table layout.
type Row struct {
	ID          uuid.UUID `db:"id"`
	UserID      int64     `db:"user_id"`
	Name        string    `db:"name"`
	Location    string    `db:"location"`
	Answers     string    `db:"answers"`
	Damage      string    `db:"damage"`
	DamagePhoto string    `db:"damage_photo"`
	DamageText  string    `db:"damage_text"`
	Outcome     string    `db:"outcome"`
	Error       string    `db:"error"`
	CreatedAt   time.Time `db:"created_at"`
}

type answerJSON struct {
	Prompt string `json:"prompt"`
	Reply  string `json:"reply"`
}

// NewRow flattens r into the table layout.
func NewRow(r Report) (Row, error) {
	answers := make([]answerJSON, 0, len(r.Session.Answers))
	for _, a := range r.Session.Answers {
		answers = append(answers, answerJSON{Prompt: a.Prompt, Reply: a.Reply})
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return Row{}, fmt.Errorf("archive: encode answers: %w", err)
	}

	row := Row{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Session.Name,
		Location:  r.Session.Location,
		Answers:   string(raw),
		Outcome:   r.Outcome,
		CreatedAt: r.CreatedAt,
	}
	if d := r.Session.Damage; d != nil {
		row.Damage = d.Flag
		row.DamagePhoto = string(d.Evidence)
		row.DamageText = d.Description
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

// Store writes reports through sqlx.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const insertReport = `
INSERT INTO reports (id, user_id, name, location, answers, damage, damage_photo, damage_text, outcome, error, created_at)
VALUES (:id, :user_id, :name, :location, :answers, :damage, :damage_photo, :damage_text, :outcome, :error, :created_at)`

// Record inserts r.
func (s *Store) Record(ctx context.Context, r Report) error {
	row, err := NewRow(r)
	if err != nil {
		return err
	}
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertReport, row); err != nil {
		logger.Error(ctx, logger.CompArchive, "archive.record",
			slog.String("status", "fail"),
			slog.String("report_id", row.ID.String()),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("archive: insert report: %w", err)
	}
	logger.Debug(ctx, logger.CompArchive, "archive.record",
		slog.String("status", "ok"),
		slog.String("report_id", row.ID.String()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
