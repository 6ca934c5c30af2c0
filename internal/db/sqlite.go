package db

import (
	"database/sql"
	"encoding/json"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/subgen/backend/internal/auth"
	"github.com/subgen/backend/internal/db/models"
	"github.com/subgen/backend/internal/job"
	"github.com/subgen/backend/internal/translate"
)

type Database struct {
	db *sql.DB
}

func NewSQLite(path string) (*Database, error) {
	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	d := &Database{db: sqlDB}
	if err := d.migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		source_lang TEXT NOT NULL DEFAULT '',
		target_lang TEXT NOT NULL DEFAULT '',
		output_mode TEXT NOT NULL DEFAULT 'file',
		state TEXT NOT NULL,
		failed_stage TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		translation TEXT,
		output_paths TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *Database) EnsureAdmin(username, password string) error {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		"INSERT INTO users (username, password, role) VALUES (?, ?, 'admin')",
		username, hash,
	)
	return err
}

func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d *Database) GetUserByID(id int64) (*models.User, error) {
	u := &models.User{}
	err := d.db.QueryRow(
		"SELECT id, username, password, role, created_at, updated_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SaveJob upserts one job record. The controller calls it on every
// state change, so the row always reflects the latest snapshot.
func (d *Database) SaveJob(j *job.Job) error {
	var translation []byte
	if j.Translation != nil {
		b, err := json.Marshal(j.Translation)
		if err != nil {
			return err
		}
		translation = b
	}
	outputs, err := json.Marshal(j.OutputPaths)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		INSERT INTO jobs (id, source_path, source_lang, target_lang, output_mode,
			state, failed_stage, error, translation, output_paths, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state, failed_stage=excluded.failed_stage, error=excluded.error,
			translation=excluded.translation, output_paths=excluded.output_paths,
			completed_at=excluded.completed_at`,
		j.ID, j.Request.SourcePath, j.Request.SourceLang, j.Request.TargetLang,
		string(j.Request.OutputMode), string(j.State), string(j.FailedStage), j.Error,
		nullableBytes(translation), string(outputs), j.CreatedAt, j.CompletedAt,
	)
	return err
}

// ListJobs returns job history, newest first.
func (d *Database) ListJobs(limit int) ([]job.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(`
		SELECT id, source_path, source_lang, target_lang, output_mode,
			state, failed_stage, error, translation, output_paths, created_at, completed_at
		FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []job.Job{}
	for rows.Next() {
		var j job.Job
		var mode, state, failedStage string
		var translation, outputs sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.Request.SourcePath, &j.Request.SourceLang,
			&j.Request.TargetLang, &mode, &state, &failedStage, &j.Error,
			&translation, &outputs, &j.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		j.Request.OutputMode = job.OutputMode(mode)
		j.State = job.State(state)
		j.FailedStage = job.State(failedStage)
		if translation.Valid && translation.String != "" {
			var res translate.Result
			if err := json.Unmarshal([]byte(translation.String), &res); err != nil {
				log.Printf("[db] job %s: bad translation record: %v", j.ID, err)
			} else {
				j.Translation = &res
			}
		}
		if outputs.Valid && outputs.String != "" {
			if err := json.Unmarshal([]byte(outputs.String), &j.OutputPaths); err != nil {
				log.Printf("[db] job %s: bad output paths record: %v", j.ID, err)
			}
		}
		if completedAt.Valid {
			t := completedAt.Time
			j.CompletedAt = &t
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// GetSetting returns a setting value by key, or defaultVal if not found
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
