package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for interviews and answers.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "prepstage.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Interviews ---

func (s *Store) SaveInterview(iv Interview) error {
	_, err := s.db.Exec(`
		INSERT INTO interviews (id, user_id, position, description, experience_years, tech_stack, sections, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, iv.Position, iv.Description, iv.ExperienceYears,
		iv.TechStack, iv.Sections,
		iv.CreatedAt.UTC().Format(time.RFC3339), iv.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// UpdateInterview replaces the mutable fields of an interview, including its
// regenerated sections. The id and created_at are never touched.
func (s *Store) UpdateInterview(iv Interview) error {
	res, err := s.db.Exec(`
		UPDATE interviews SET position = ?, description = ?, experience_years = ?, tech_stack = ?, sections = ?, updated_at = ?
		WHERE id = ?`,
		iv.Position, iv.Description, iv.ExperienceYears, iv.TechStack, iv.Sections,
		iv.UpdatedAt.UTC().Format(time.RFC3339), iv.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetInterview(id string) (Interview, error) {
	var iv Interview
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, user_id, position, description, experience_years, tech_stack, sections, created_at, updated_at
		FROM interviews WHERE id = ?`, id,
	).Scan(&iv.ID, &iv.UserID, &iv.Position, &iv.Description, &iv.ExperienceYears, &iv.TechStack, &iv.Sections, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Interview{}, ErrNotFound
	}
	if err != nil {
		return Interview{}, err
	}
	if iv.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Interview{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if iv.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Interview{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return iv, nil
}

func (s *Store) ListInterviews(userID string) ([]Interview, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, position, description, experience_years, tech_stack, sections, created_at, updated_at
		FROM interviews WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interview
	for rows.Next() {
		var iv Interview
		var createdAt, updatedAt string
		if err := rows.Scan(&iv.ID, &iv.UserID, &iv.Position, &iv.Description, &iv.ExperienceYears, &iv.TechStack, &iv.Sections, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if iv.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if iv.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, iv)
	}
	return results, rows.Err()
}

// DeleteInterview removes an interview and all answers referencing it in a
// single transaction.
func (s *Store) DeleteInterview(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM interviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM answers WHERE interview_id = ?`, id); err != nil {
		return fmt.Errorf("cascading answer delete: %w", err)
	}

	return tx.Commit()
}

// --- Answers ---

func (s *Store) SaveAnswer(a Answer) error {
	_, err := s.db.Exec(`
		INSERT INTO answers (id, interview_id, user_id, section, question, question_norm, user_answer, reference_answer, rating, feedback, person_detected, detected_objects, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.InterviewID, a.UserID, a.Section, a.Question, a.QuestionNorm,
		a.UserAnswer, a.ReferenceAnswer, a.Rating, a.Feedback,
		boolToInt(a.PersonDetected), a.DetectedObjects,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// FindAnswer looks up the answer for one question of one interview by the
// normalized question text. At most one row is expected; duplicates are
// prevented by lookup-before-insert in the session controller, not here.
func (s *Store) FindAnswer(userID, interviewID, questionNorm string) (Answer, error) {
	row := s.db.QueryRow(answerSelect+` WHERE user_id = ? AND interview_id = ? AND question_norm = ? LIMIT 1`,
		userID, interviewID, questionNorm)
	return scanAnswer(row)
}

func (s *Store) GetAnswer(id string) (Answer, error) {
	row := s.db.QueryRow(answerSelect+` WHERE id = ?`, id)
	return scanAnswer(row)
}

func (s *Store) ListAnswers(userID, interviewID string) ([]Answer, error) {
	rows, err := s.db.Query(answerSelect+` WHERE user_id = ? AND interview_id = ? ORDER BY created_at ASC`,
		userID, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (s *Store) DeleteAnswer(id string) error {
	res, err := s.db.Exec(`DELETE FROM answers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAnsweredQuestions returns how many distinct questions of an interview
// the user has answered.
func (s *Store) CountAnsweredQuestions(userID, interviewID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT question_norm) FROM answers WHERE user_id = ? AND interview_id = ?`,
		userID, interviewID).Scan(&n)
	return n, err
}

const answerSelect = `
	SELECT id, interview_id, user_id, section, question, question_norm, user_answer, reference_answer, rating, feedback, person_detected, detected_objects, created_at
	FROM answers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnswer(row rowScanner) (Answer, error) {
	var a Answer
	var person int
	var createdAt string
	err := row.Scan(&a.ID, &a.InterviewID, &a.UserID, &a.Section, &a.Question, &a.QuestionNorm,
		&a.UserAnswer, &a.ReferenceAnswer, &a.Rating, &a.Feedback, &person, &a.DetectedObjects, &createdAt)
	if err == sql.ErrNoRows {
		return Answer{}, ErrNotFound
	}
	if err != nil {
		return Answer{}, err
	}
	a.PersonDetected = person != 0
	if a.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Answer{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
