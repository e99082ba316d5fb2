// Package progress persists completed reading sessions and answers
// questions about a learner's history. All state lives in a single JSON
// document on disk; the tracker is its only writer.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"readquest/internal/model"
)

// LoadOutcome reports how the tracker obtained its initial state.
type LoadOutcome int

const (
	// LoadedExisting means the document was read from disk.
	LoadedExisting LoadOutcome = iota
	// StartedFresh means no document existed yet.
	StartedFresh
	// ResetCorrupt means an existing document failed to parse and was
	// replaced with a fresh one. It is overwritten on the next save.
	ResetCorrupt
)

// document is the on-disk layout: an append-only session list plus the
// running counters.
type document struct {
	Sessions []model.Session `json:"sessions"`
	Overall  counters        `json:"overall_stats"`
}

type counters struct {
	TotalPassagesRead      int                 `json:"total_passages_read"`
	TotalQuestionsAnswered int                 `json:"total_questions_answered"`
	TotalCorrect           int                 `json:"total_correct"`
	PassagesByGrade        map[model.Grade]int `json:"passages_by_grade"`
}

func newDocument() document {
	byGrade := make(map[model.Grade]int, len(model.Grades))
	for _, g := range model.Grades {
		byGrade[g] = 0
	}
	return document{
		Sessions: []model.Session{},
		Overall:  counters{PassagesByGrade: byGrade},
	}
}

// Tracker owns the progress document for one installation.
type Tracker struct {
	path string
	doc  document
	now  func() time.Time
}

// New loads the tracker state from path. A missing file starts fresh; a
// file that fails to parse is replaced (the corruption is reported via
// the outcome so callers can surface it, but is not an error). Other
// read failures are returned as errors.
func New(path string) (*Tracker, LoadOutcome, error) {
	t := &Tracker{path: path, doc: newDocument(), now: time.Now}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, StartedFresh, nil
	}
	if err != nil {
		return nil, StartedFresh, fmt.Errorf("read progress file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return t, ResetCorrupt, nil
	}
	if doc.Overall.PassagesByGrade == nil {
		doc.Overall.PassagesByGrade = newDocument().Overall.PassagesByGrade
	}
	t.doc = doc
	return t, LoadedExisting, nil
}

// Save writes the whole document to disk, creating the parent directory
// if needed. The write replaces any previous content.
func (t *Tracker) Save() error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create progress dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(t.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("write progress file: %w", err)
	}
	return nil
}

// RecordSession appends a completed reading session and updates the
// aggregate counters, then persists the document. The grade must be one
// of the known levels.
func (t *Tracker) RecordSession(grade model.Grade, passageID, passageTitle string, results []model.EvaluationResult) (model.Session, error) {
	if _, ok := model.GradeLevels[grade]; !ok {
		return model.Session{}, fmt.Errorf("unknown grade %q", grade)
	}

	correct := 0
	for _, r := range results {
		if r.Correct {
			correct++
		}
	}
	accuracy := 0.0
	if len(results) > 0 {
		accuracy = float64(correct) / float64(len(results)) * 100
	}

	session := model.Session{
		Date:           t.now(),
		Grade:          grade,
		PassageID:      passageID,
		PassageTitle:   passageTitle,
		TotalQuestions: len(results),
		CorrectAnswers: correct,
		Accuracy:       accuracy,
		Results:        results,
	}

	t.doc.Sessions = append(t.doc.Sessions, session)
	t.doc.Overall.TotalPassagesRead++
	t.doc.Overall.TotalQuestionsAnswered += len(results)
	t.doc.Overall.TotalCorrect += correct
	t.doc.Overall.PassagesByGrade[grade]++

	if err := t.Save(); err != nil {
		return session, err
	}
	return session, nil
}

// OverallStats returns a snapshot of the aggregate counters.
func (t *Tracker) OverallStats() model.OverallStats {
	o := t.doc.Overall
	accuracy := 0.0
	if o.TotalQuestionsAnswered > 0 {
		accuracy = float64(o.TotalCorrect) / float64(o.TotalQuestionsAnswered) * 100
	}
	byGrade := make(map[model.Grade]int, len(o.PassagesByGrade))
	for g, n := range o.PassagesByGrade {
		byGrade[g] = n
	}
	return model.OverallStats{
		TotalPassagesRead:      o.TotalPassagesRead,
		TotalQuestionsAnswered: o.TotalQuestionsAnswered,
		TotalCorrect:           o.TotalCorrect,
		OverallAccuracy:        accuracy,
		PassagesByGrade:        byGrade,
	}
}

// RecentSessions returns the last limit sessions in insertion order.
func (t *Tracker) RecentSessions(limit int) []model.Session {
	sessions := t.doc.Sessions
	if limit <= 0 || limit >= len(sessions) {
		limit = len(sessions)
	}
	out := make([]model.Session, limit)
	copy(out, sessions[len(sessions)-limit:])
	return out
}

// AllSessions returns every recorded session in insertion order.
func (t *Tracker) AllSessions() []model.Session {
	out := make([]model.Session, len(t.doc.Sessions))
	copy(out, t.doc.Sessions)
	return out
}

// GradePerformance sums stats across one grade's sessions. Returns nil
// when no sessions exist for that grade.
func (t *Tracker) GradePerformance(grade model.Grade) *model.GradeStats {
	var stats model.GradeStats
	for _, s := range t.doc.Sessions {
		if s.Grade != grade {
			continue
		}
		stats.PassagesRead++
		stats.TotalQuestions += s.TotalQuestions
		stats.TotalCorrect += s.CorrectAnswers
	}
	if stats.PassagesRead == 0 {
		return nil
	}
	if stats.TotalQuestions > 0 {
		stats.AverageAccuracy = float64(stats.TotalCorrect) / float64(stats.TotalQuestions) * 100
	}
	return &stats
}

// ImprovementTrend compares mean session accuracy between the earlier
// and later halves of the history. The split is at len/2, so the first
// half gets the smaller share on odd counts. Deltas within ±5 points
// count as stable.
func (t *Tracker) ImprovementTrend() string {
	sessions := t.doc.Sessions
	if len(sessions) < 2 {
		return "Not enough data to determine trend"
	}

	mid := len(sessions) / 2
	firstAvg := meanAccuracy(sessions[:mid])
	secondAvg := meanAccuracy(sessions[mid:])
	delta := secondAvg - firstAvg

	switch {
	case delta > 5:
		return fmt.Sprintf("Improving! Accuracy increased by %.1f%%", delta)
	case delta < -5:
		return fmt.Sprintf("Declining. Accuracy decreased by %.1f%%", -delta)
	default:
		return "Stable performance"
	}
}

func meanAccuracy(sessions []model.Session) float64 {
	sum := 0.0
	for _, s := range sessions {
		sum += s.Accuracy
	}
	return sum / float64(len(sessions))
}
