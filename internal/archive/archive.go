// Package archive persists completed interview reports in SQLite. Live
// session state stays in memory; this is the durable record left behind
// after teardown.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/voxprep/voxprep/internal/interview"
	"github.com/voxprep/voxprep/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		session_id TEXT PRIMARY KEY,
		participant TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL,
		style TEXT NOT NULL,
		experience_level TEXT NOT NULL,
		overall_score REAL NOT NULL DEFAULT 0,
		performance_level TEXT NOT NULL DEFAULT '',
		num_responses INTEGER NOT NULL DEFAULT 0,
		completed_at DATETIME NOT NULL,
		report_json TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport stores a completed session's report. Saving the same session
// twice overwrites, so re-ending an interview is harmless.
func (s *Store) SaveReport(sess *model.Session, report *interview.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	completedAt := time.Now()
	if sess.CompletedAt != nil {
		completedAt = *sess.CompletedAt
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO reports
		 (session_id, participant, topic, style, experience_level,
		  overall_score, performance_level, num_responses, completed_at, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Participant, sess.Config.Topic, sess.Config.Style,
		sess.Config.ExperienceLevel, report.Overall.OverallScore,
		report.Overall.PerformanceLevel, len(sess.Responses), completedAt, payload,
	)
	return err
}

// GetReport loads the full report for one session. Returns sql.ErrNoRows
// when the session was never archived.
func (s *Store) GetReport(sessionID string) (*interview.Report, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT report_json FROM reports WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if err != nil {
		return nil, err
	}
	var report interview.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// Summary is one row of the archive listing, without the report body.
type Summary struct {
	SessionID        string                 `json:"session_id"`
	Participant      string                 `json:"participant"`
	Topic            string                 `json:"topic"`
	Style            model.InterviewStyle   `json:"style"`
	ExperienceLevel  model.ExperienceLevel  `json:"experience_level"`
	OverallScore     float64                `json:"overall_score"`
	PerformanceLevel model.PerformanceLevel `json:"performance_level"`
	NumResponses     int                    `json:"num_responses"`
	CompletedAt      time.Time              `json:"completed_at"`
}

// ListReports returns archived sessions, most recent first.
func (s *Store) ListReports() ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT session_id, participant, topic, style, experience_level,
		        overall_score, performance_level, num_responses, completed_at
		 FROM reports ORDER BY completed_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.SessionID, &sm.Participant, &sm.Topic, &sm.Style,
			&sm.ExperienceLevel, &sm.OverallScore, &sm.PerformanceLevel,
			&sm.NumResponses, &sm.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
