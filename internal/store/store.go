package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/peop360/beyonders/internal/model"

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
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		code_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'candidate',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		candidate_id INTEGER NOT NULL DEFAULT 0,
		mode TEXT NOT NULL,
		track TEXT NOT NULL DEFAULT '',
		initial_difficulty TEXT NOT NULL DEFAULT '',
		raw_score REAL NOT NULL DEFAULT 0,
		final_score REAL NOT NULL DEFAULT 0,
		time_factor REAL NOT NULL DEFAULT 0,
		elapsed_seconds REAL NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		proctor_warnings INTEGER NOT NULL DEFAULT 0,
		narrative_json TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		selected TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL,
		difficulty TEXT NOT NULL,
		points_earned REAL NOT NULL,
		FOREIGN KEY (report_id) REFERENCES reports(id)
	);

	CREATE TABLE IF NOT EXISTS report_stories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL,
		card_id INTEGER NOT NULL,
		story TEXT NOT NULL,
		time_spent_seconds REAL NOT NULL,
		analysis_json TEXT NOT NULL,
		FOREIGN KEY (report_id) REFERENCES reports(id)
	);

	CREATE TABLE IF NOT EXISTS assessment_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport persists a final report with its answer and story detail
// rows in one transaction.
func (s *Store) SaveReport(report model.FinalReport) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var narrativeJSON sql.NullString
	if report.Narrative != nil {
		data, err := json.Marshal(report.Narrative)
		if err != nil {
			return 0, fmt.Errorf("marshal narrative summary: %w", err)
		}
		narrativeJSON = sql.NullString{String: string(data), Valid: true}
	}

	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := tx.Exec(
		`INSERT INTO reports (candidate_id, mode, track, initial_difficulty, raw_score,
		 final_score, time_factor, elapsed_seconds, correct_answers, proctor_warnings,
		 narrative_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.CandidateID, report.Mode, report.Track, report.InitialDifficulty,
		report.RawScore, report.FinalScore, report.TimeFactor, report.ElapsedSeconds,
		report.CorrectAnswers, report.ProctorWarnings, narrativeJSON, createdAt,
	)
	if err != nil {
		return 0, err
	}
	reportID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range report.Answers {
		_, err := tx.Exec(
			`INSERT INTO report_answers (report_id, question_id, question_text, selected,
			 is_correct, difficulty, points_earned) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			reportID, a.Question.ID, a.Question.Text, a.Selected,
			a.IsCorrect, a.Difficulty, a.PointsEarned,
		)
		if err != nil {
			return 0, err
		}
	}

	for _, st := range report.Stories {
		analysisJSON, err := json.Marshal(st.Analysis)
		if err != nil {
			return 0, fmt.Errorf("marshal story analysis: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO report_stories (report_id, card_id, story, time_spent_seconds, analysis_json)
			 VALUES (?, ?, ?, ?, ?)`,
			reportID, st.CardID, st.Story, st.TimeSpentSeconds, string(analysisJSON),
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return reportID, nil
}

// GetReport loads a stored report with its answer and story rows.
func (s *Store) GetReport(id int64) (*model.FinalReport, error) {
	var (
		r             model.FinalReport
		narrativeJSON sql.NullString
	)
	err := s.db.QueryRow(
		`SELECT id, candidate_id, mode, track, initial_difficulty, raw_score, final_score,
		 time_factor, elapsed_seconds, correct_answers, proctor_warnings, narrative_json, created_at
		 FROM reports WHERE id = ?`, id,
	).Scan(&r.ID, &r.CandidateID, &r.Mode, &r.Track, &r.InitialDifficulty, &r.RawScore,
		&r.FinalScore, &r.TimeFactor, &r.ElapsedSeconds, &r.CorrectAnswers,
		&r.ProctorWarnings, &narrativeJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if narrativeJSON.Valid {
		var summary model.NarrativeSummary
		if err := json.Unmarshal([]byte(narrativeJSON.String), &summary); err != nil {
			return nil, fmt.Errorf("unmarshal narrative summary: %w", err)
		}
		r.Narrative = &summary
	}

	answers, err := s.getAnswers(id)
	if err != nil {
		return nil, err
	}
	r.Answers = answers

	stories, err := s.getStories(id)
	if err != nil {
		return nil, err
	}
	r.Stories = stories

	return &r, nil
}

// ListReports returns all stored reports, newest first, without their
// detail rows.
func (s *Store) ListReports() ([]model.FinalReport, error) {
	rows, err := s.db.Query(
		`SELECT id, candidate_id, mode, track, initial_difficulty, raw_score, final_score,
		 time_factor, elapsed_seconds, correct_answers, proctor_warnings, narrative_json, created_at
		 FROM reports ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []model.FinalReport
	for rows.Next() {
		var (
			r             model.FinalReport
			narrativeJSON sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.Mode, &r.Track, &r.InitialDifficulty,
			&r.RawScore, &r.FinalScore, &r.TimeFactor, &r.ElapsedSeconds, &r.CorrectAnswers,
			&r.ProctorWarnings, &narrativeJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		if narrativeJSON.Valid {
			var summary model.NarrativeSummary
			if err := json.Unmarshal([]byte(narrativeJSON.String), &summary); err != nil {
				return nil, fmt.Errorf("unmarshal narrative summary: %w", err)
			}
			r.Narrative = &summary
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ReportCount returns the number of stored reports.
func (s *Store) ReportCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&count)
	return count, err
}

func (s *Store) getAnswers(reportID int64) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT question_id, question_text, selected, is_correct, difficulty, points_earned
		 FROM report_answers WHERE report_id = ? ORDER BY id`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AnswerRecord
	for rows.Next() {
		var a model.AnswerRecord
		if err := rows.Scan(&a.Question.ID, &a.Question.Text, &a.Selected,
			&a.IsCorrect, &a.Difficulty, &a.PointsEarned); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *Store) getStories(reportID int64) ([]model.StoryRecord, error) {
	rows, err := s.db.Query(
		`SELECT card_id, story, time_spent_seconds, analysis_json
		 FROM report_stories WHERE report_id = ? ORDER BY id`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []model.StoryRecord
	for rows.Next() {
		var (
			st           model.StoryRecord
			analysisJSON string
		)
		if err := rows.Scan(&st.CardID, &st.Story, &st.TimeSpentSeconds, &analysisJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(analysisJSON), &st.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal story analysis: %w", err)
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}
