// Package content is the read-side store of passages and questions,
// backed by SQLite and populated from JSON content files.
package content

import (
	"database/sql"
	"fmt"
	"sort"

	"readquest/internal/model"

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
	CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		grade TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		passage_id TEXT NOT NULL,
		type TEXT NOT NULL,
		question TEXT NOT NULL,
		option_a TEXT NOT NULL,
		option_b TEXT NOT NULL,
		option_c TEXT NOT NULL,
		option_d TEXT NOT NULL,
		answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (passage_id) REFERENCES passages(id)
	);

	CREATE TABLE IF NOT EXISTS content_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertPassage stores a passage.
func (s *Store) InsertPassage(p model.Passage) error {
	_, err := s.db.Exec(
		`INSERT INTO passages (id, title, grade, type, content) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Grade, p.Type, p.Content,
	)
	return err
}

// InsertQuestion stores a question. The options map must carry the four
// keys A-D.
func (s *Store) InsertQuestion(q model.Question) error {
	if len(q.Options) != 4 {
		return fmt.Errorf("question %s: expected 4 options, got %d", q.ID, len(q.Options))
	}
	if _, ok := q.Options[q.CorrectKey]; !ok {
		return fmt.Errorf("question %s: correct key %q not in options", q.ID, q.CorrectKey)
	}
	_, err := s.db.Exec(
		`INSERT INTO questions (id, passage_id, type, question, option_a, option_b, option_c, option_d, answer, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.PassageID, q.Type, q.Text,
		q.Options["A"], q.Options["B"], q.Options["C"], q.Options["D"],
		q.CorrectKey, q.Explanation,
	)
	return err
}

// ListPassagesByGrade returns all passages for a grade, ordered by id.
func (s *Store) ListPassagesByGrade(grade model.Grade) ([]model.Passage, error) {
	rows, err := s.db.Query(
		`SELECT id, title, grade, type, content FROM passages WHERE grade = ? ORDER BY id`, grade,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var passages []model.Passage
	for rows.Next() {
		var p model.Passage
		if err := rows.Scan(&p.ID, &p.Title, &p.Grade, &p.Type, &p.Content); err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// GetPassage returns a passage by id, or sql.ErrNoRows.
func (s *Store) GetPassage(id string) (model.Passage, error) {
	var p model.Passage
	err := s.db.QueryRow(
		`SELECT id, title, grade, type, content FROM passages WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Grade, &p.Type, &p.Content)
	return p, err
}

// QuestionsForPassage returns a passage's questions in id order.
func (s *Store) QuestionsForPassage(passageID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, passage_id, type, question, option_a, option_b, option_c, option_d, answer, explanation
		 FROM questions WHERE passage_id = ? ORDER BY id`, passageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var a, b, c, d string
		if err := rows.Scan(&q.ID, &q.PassageID, &q.Type, &q.Text, &a, &b, &c, &d, &q.CorrectKey, &q.Explanation); err != nil {
			return nil, err
		}
		q.Options = map[string]string{"A": a, "B": b, "C": c, "D": d}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// PassageCount returns the number of stored passages.
func (s *Store) PassageCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM passages`).Scan(&count)
	return count, err
}

// QuestionCount returns the number of stored questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// GradesWithContent returns the grades that have at least one passage,
// in school order.
func (s *Store) GradesWithContent() ([]model.Grade, error) {
	rows, err := s.db.Query(`SELECT DISTINCT grade FROM passages`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	present := map[model.Grade]bool{}
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		present[g] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var grades []model.Grade
	for _, g := range model.Grades {
		if present[g] {
			grades = append(grades, g)
		}
	}
	// Unknown grades in content files still show up, after the known ones.
	var extra []model.Grade
	for g := range present {
		if _, ok := model.GradeLevels[g]; !ok {
			extra = append(extra, g)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(grades, extra...), nil
}

// Import inserts passages and their questions inside one transaction.
func (s *Store) Import(passages []model.PassageImport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, pi := range passages {
		if _, err := tx.Exec(
			`INSERT INTO passages (id, title, grade, type, content) VALUES (?, ?, ?, ?, ?)`,
			pi.ID, pi.Title, pi.Grade, pi.Type, pi.Content,
		); err != nil {
			return fmt.Errorf("insert passage %s: %w", pi.ID, err)
		}
		for _, qi := range pi.Questions {
			if len(qi.Options) != 4 {
				return fmt.Errorf("question %s: expected 4 options, got %d", qi.ID, len(qi.Options))
			}
			if _, ok := qi.Options[qi.CorrectKey]; !ok {
				return fmt.Errorf("question %s: correct key %q not in options", qi.ID, qi.CorrectKey)
			}
			if _, err := tx.Exec(
				`INSERT INTO questions (id, passage_id, type, question, option_a, option_b, option_c, option_d, answer, explanation)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				qi.ID, pi.ID, qi.Type, qi.Text,
				qi.Options["A"], qi.Options["B"], qi.Options["C"], qi.Options["D"],
				qi.CorrectKey, qi.Explanation,
			); err != nil {
				return fmt.Errorf("insert question %s: %w", qi.ID, err)
			}
		}
	}

	return tx.Commit()
}

// GetImportedFileHash returns the recorded hash for a content file.
// Returns empty string and nil error if the file was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM content_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash upserts the recorded hash for a content file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO content_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		path, hash, hash,
	)
	return err
}
