package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

// ErrNotFound is returned when no render exists for a job ID.
var ErrNotFound = errors.New("render not found")

// RenderRecord is one row of the renders table.
type RenderRecord struct {
	JobID         string     `json:"job_id"`
	Source        string     `json:"source"`
	Mode          string     `json:"mode"`
	Language      string     `json:"language"`
	ScriptPreview string     `json:"script_preview"`
	Status        string     `json:"status"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	LocalPath     string     `json:"local_path,omitempty"`
	GDriveURL     string     `json:"gdrive_url,omitempty"`
	AudioDuration float64    `json:"audio_duration"`
	Units         int        `json:"units"`
	Frames        int        `json:"frames"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB creates a new metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Workers write concurrently; SQLite takes one writer at a time.
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS renders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		mode TEXT NOT NULL,
		language TEXT NOT NULL,
		script_preview TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL DEFAULT '',
		gdrive_url TEXT NOT NULL DEFAULT '',
		audio_duration REAL NOT NULL DEFAULT 0,
		units INTEGER NOT NULL DEFAULT 0,
		frames INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_renders_created_at ON renders(created_at);
	CREATE INDEX IF NOT EXISTS idx_renders_status ON renders(status);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// CreateRender records a newly queued job.
func (mdb *MetadataDB) CreateRender(jobID, source string, mode types.Mode, language, script string) error {
	query := `
	INSERT INTO renders (job_id, source, mode, language, script_preview, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query, jobID, source, string(mode), language, preview(script),
		types.StatusQueued, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create render record: %w", err)
	}
	return nil
}

// StartRender marks a job as picked up by a worker.
func (mdb *MetadataDB) StartRender(jobID string) error {
	return mdb.update(`UPDATE renders SET status = ?, started_at = ? WHERE job_id = ?`,
		types.StatusProcessing, time.Now().UTC(), jobID)
}

// CompleteRender stores the outcome of a successful job.
func (mdb *MetadataDB) CompleteRender(jobID string, res *types.RenderResult) error {
	return mdb.update(`
	UPDATE renders SET status = ?, local_path = ?, gdrive_url = ?, audio_duration = ?,
		units = ?, frames = ?, finished_at = ?
	WHERE job_id = ?`,
		types.StatusCompleted, res.LocalPath, res.GDriveURL, res.AudioDuration,
		res.Units, res.Frames, time.Now().UTC(), jobID)
}

// FailRender stores a terminal failure.
func (mdb *MetadataDB) FailRender(jobID, kind, message string) error {
	return mdb.update(`
	UPDATE renders SET status = ?, error_kind = ?, error_message = ?, finished_at = ?
	WHERE job_id = ?`,
		types.StatusFailed, kind, message, time.Now().UTC(), jobID)
}

func (mdb *MetadataDB) update(query string, args ...interface{}) error {
	res, err := mdb.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update render: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update render: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectRender = `
	SELECT job_id, source, mode, language, script_preview, status, error_kind, error_message,
		local_path, gdrive_url, audio_duration, units, frames, created_at, started_at, finished_at
	FROM renders`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRender(s scanner) (*RenderRecord, error) {
	var (
		r                 RenderRecord
		started, finished sql.NullTime
	)
	err := s.Scan(&r.JobID, &r.Source, &r.Mode, &r.Language, &r.ScriptPreview, &r.Status,
		&r.ErrorKind, &r.ErrorMessage, &r.LocalPath, &r.GDriveURL, &r.AudioDuration,
		&r.Units, &r.Frames, &r.CreatedAt, &started, &finished)
	if err != nil {
		return nil, err
	}
	if started.Valid {
		r.StartedAt = &started.Time
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

// GetRender retrieves a render by job ID
func (mdb *MetadataDB) GetRender(jobID string) (*RenderRecord, error) {
	r, err := scanRender(mdb.db.QueryRow(selectRender+` WHERE job_id = ?`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render: %w", err)
	}
	return r, nil
}

// ListRenders returns the most recent renders first
func (mdb *MetadataDB) ListRenders(limit int) ([]RenderRecord, error) {
	rows, err := mdb.db.Query(selectRender+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list renders: %w", err)
	}
	defer rows.Close()

	renders := []RenderRecord{}
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			continue
		}
		renders = append(renders, *r)
	}

	return renders, rows.Err()
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}

func preview(script string) string {
	r := []rune(script)
	if len(r) > 80 {
		return string(r[:80]) + "…"
	}
	return string(r)
}
