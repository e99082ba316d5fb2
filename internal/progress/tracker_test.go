package progress

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"readquest/internal/model"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_progress.json")
	tr, outcome, err := New(path)
	if err != nil {
		t.Fatalf("newTestTracker: %v", err)
	}
	if outcome != StartedFresh {
		t.Fatalf("expected StartedFresh for missing file, got %v", outcome)
	}
	return tr
}

// resultsWith builds a result list of the given size with the first
// correct entries marked correct.
func resultsWith(size, correct int) []model.EvaluationResult {
	results := make([]model.EvaluationResult, size)
	for i := range results {
		results[i] = model.EvaluationResult{
			Correct:      i < correct,
			QuestionType: model.TypeMainIdea,
		}
	}
	return results
}

func TestNewMissingFile(t *testing.T) {
	tr := newTestTracker(t)
	stats := tr.OverallStats()
	if stats.TotalPassagesRead != 0 || stats.TotalQuestionsAnswered != 0 || stats.TotalCorrect != 0 {
		t.Errorf("fresh tracker stats = %+v, want zeros", stats)
	}
	for _, g := range model.Grades {
		if stats.PassagesByGrade[g] != 0 {
			t.Errorf("grade %s count = %d, want 0", g, stats.PassagesByGrade[g])
		}
	}
	if len(stats.PassagesByGrade) != len(model.Grades) {
		t.Errorf("expected all %d grades initialized, got %d", len(model.Grades), len(stats.PassagesByGrade))
	}
}

func TestNewCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_progress.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	tr, outcome, err := New(path)
	if err != nil {
		t.Fatalf("New on corrupt file: %v", err)
	}
	if outcome != ResetCorrupt {
		t.Errorf("outcome = %v, want ResetCorrupt", outcome)
	}
	if got := tr.OverallStats().TotalPassagesRead; got != 0 {
		t.Errorf("reset tracker should be empty, got %d passages", got)
	}

	// Next save overwrites the corrupt file.
	if _, err := tr.RecordSession(model.Grade1, "g1_1", "Sam and the Lost Puppy", resultsWith(3, 2)); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	tr2, outcome, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if outcome != LoadedExisting {
		t.Errorf("outcome after overwrite = %v, want LoadedExisting", outcome)
	}
	if got := tr2.OverallStats().TotalPassagesRead; got != 1 {
		t.Errorf("reloaded passages = %d, want 1", got)
	}
}

func TestRecordSessionUnknownGrade(t *testing.T) {
	tr := newTestTracker(t)
	if _, err := tr.RecordSession(model.Grade("7"), "x", "X", resultsWith(1, 1)); err == nil {
		t.Fatal("expected error for unknown grade")
	}
	if got := tr.OverallStats().TotalPassagesRead; got != 0 {
		t.Errorf("failed record must not mutate state, got %d passages", got)
	}
}

func TestRecordSessionAggregates(t *testing.T) {
	tr := newTestTracker(t)

	sizes := []int{3, 2, 4}
	corrects := []int{2, 2, 1}
	grades := []model.Grade{model.Grade1, model.Grade1, model.Grade3}
	for i := range sizes {
		if _, err := tr.RecordSession(grades[i], "p", "P", resultsWith(sizes[i], corrects[i])); err != nil {
			t.Fatalf("RecordSession %d: %v", i, err)
		}
	}

	stats := tr.OverallStats()
	if stats.TotalPassagesRead != 3 {
		t.Errorf("passages = %d, want 3", stats.TotalPassagesRead)
	}
	if stats.TotalQuestionsAnswered != 9 {
		t.Errorf("questions = %d, want 9", stats.TotalQuestionsAnswered)
	}
	if stats.TotalCorrect != 5 {
		t.Errorf("correct = %d, want 5", stats.TotalCorrect)
	}
	want := 5.0 / 9.0 * 100
	if math.Abs(stats.OverallAccuracy-want) > 1e-9 {
		t.Errorf("accuracy = %f, want %f", stats.OverallAccuracy, want)
	}
	if stats.PassagesByGrade[model.Grade1] != 2 || stats.PassagesByGrade[model.Grade3] != 1 {
		t.Errorf("per-grade counts = %v", stats.PassagesByGrade)
	}
}

func TestRecordSessionEmptyResults(t *testing.T) {
	tr := newTestTracker(t)
	session, err := tr.RecordSession(model.GradeK, "k1", "The Little Red Hen", nil)
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if session.Accuracy != 0 {
		t.Errorf("empty session accuracy = %f, want 0", session.Accuracy)
	}
	if got := tr.OverallStats().OverallAccuracy; got != 0 {
		t.Errorf("overall accuracy with no questions = %f, want 0", got)
	}
}

func TestRecentSessions(t *testing.T) {
	tr := newTestTracker(t)
	titles := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, title := range titles {
		if _, err := tr.RecordSession(model.Grade2, "p_"+title, title, resultsWith(1, 1)); err != nil {
			t.Fatalf("RecordSession: %v", err)
		}
	}

	recent := tr.RecentSessions(5)
	if len(recent) != 5 {
		t.Fatalf("len = %d, want 5", len(recent))
	}
	for i, want := range []string{"c", "d", "e", "f", "g"} {
		if recent[i].PassageTitle != want {
			t.Errorf("recent[%d] = %q, want %q", i, recent[i].PassageTitle, want)
		}
	}

	if got := tr.RecentSessions(20); len(got) != 7 {
		t.Errorf("limit above count should return all 7, got %d", len(got))
	}

	empty := newTestTracker(t)
	if got := empty.RecentSessions(5); len(got) != 0 {
		t.Errorf("expected empty slice, got %d sessions", len(got))
	}
}

func TestGradePerformance(t *testing.T) {
	tr := newTestTracker(t)
	if got := tr.GradePerformance(model.Grade4); got != nil {
		t.Errorf("expected nil for grade with no sessions, got %+v", got)
	}

	if _, err := tr.RecordSession(model.Grade4, "g4_1", "The Time Capsule Project", resultsWith(3, 2)); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if _, err := tr.RecordSession(model.Grade4, "g4_2", "The Science of Earthquakes", resultsWith(3, 3)); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if _, err := tr.RecordSession(model.Grade5, "g5_1", "The Art of Perseverance", resultsWith(4, 0)); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	stats := tr.GradePerformance(model.Grade4)
	if stats == nil {
		t.Fatal("expected stats for grade 4")
	}
	if stats.PassagesRead != 2 || stats.TotalQuestions != 6 || stats.TotalCorrect != 5 {
		t.Errorf("grade 4 stats = %+v", stats)
	}
	want := 5.0 / 6.0 * 100
	if math.Abs(stats.AverageAccuracy-want) > 1e-9 {
		t.Errorf("average accuracy = %f, want %f", stats.AverageAccuracy, want)
	}
}

func TestImprovementTrend(t *testing.T) {
	tr := newTestTracker(t)
	if got := tr.ImprovementTrend(); got != "Not enough data to determine trend" {
		t.Errorf("no sessions: %q", got)
	}

	if _, err := tr.RecordSession(model.Grade1, "p", "P", resultsWith(2, 1)); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if got := tr.ImprovementTrend(); got != "Not enough data to determine trend" {
		t.Errorf("one session: %q", got)
	}

	record := func(tr *Tracker, accuracies []int) {
		t.Helper()
		for _, pct := range accuracies {
			// pct out of 100 questions gives the session that accuracy.
			if _, err := tr.RecordSession(model.Grade1, "p", "P", resultsWith(100, pct)); err != nil {
				t.Fatalf("RecordSession: %v", err)
			}
		}
	}

	declining := newTestTracker(t)
	record(declining, []int{100, 100, 0, 0})
	if got := declining.ImprovementTrend(); got != "Declining. Accuracy decreased by 100.0%" {
		t.Errorf("declining trend = %q", got)
	}

	improving := newTestTracker(t)
	record(improving, []int{50, 50, 80, 80})
	if got := improving.ImprovementTrend(); got != "Improving! Accuracy increased by 30.0%" {
		t.Errorf("improving trend = %q", got)
	}

	// A delta of exactly 5 points is stable, not improvement.
	stable := newTestTracker(t)
	record(stable, []int{50, 50, 55, 55})
	if got := stable.ImprovementTrend(); got != "Stable performance" {
		t.Errorf("stable trend = %q", got)
	}

	// Odd counts: first half gets the smaller share.
	odd := newTestTracker(t)
	record(odd, []int{0, 100, 100})
	if got := odd.ImprovementTrend(); !strings.HasPrefix(got, "Improving!") {
		t.Errorf("odd-count trend = %q, want improving", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "user_progress.json")
	tr, _, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := []model.EvaluationResult{
		{Correct: true, Feedback: "Excellent! That's correct!", Explanation: "e1", QuestionType: model.TypeMainIdea},
		{Correct: false, Feedback: "Not quite. The correct answer is A.", Explanation: "e2", WhyWrong: "w2", QuestionType: model.TypeInference},
	}
	if _, err := tr.RecordSession(model.Grade2, "g2_1", "The Friendship Garden", results); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	reloaded, outcome, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if outcome != LoadedExisting {
		t.Fatalf("outcome = %v, want LoadedExisting", outcome)
	}

	sessions := reloaded.AllSessions()
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.PassageID != "g2_1" || got.PassageTitle != "The Friendship Garden" || got.Grade != model.Grade2 {
		t.Errorf("session identity mismatch: %+v", got)
	}
	if got.TotalQuestions != 2 || got.CorrectAnswers != 1 || got.Accuracy != 50 {
		t.Errorf("session totals mismatch: %+v", got)
	}
	if len(got.Results) != 2 || got.Results[1].WhyWrong != "w2" {
		t.Errorf("results not preserved: %+v", got.Results)
	}
	a, b := tr.OverallStats(), reloaded.OverallStats()
	if a.TotalPassagesRead != b.TotalPassagesRead || a.TotalQuestionsAnswered != b.TotalQuestionsAnswered ||
		a.TotalCorrect != b.TotalCorrect || a.OverallAccuracy != b.OverallAccuracy {
		t.Errorf("stats diverged after reload: %+v vs %+v", a, b)
	}
	for _, g := range model.Grades {
		if a.PassagesByGrade[g] != b.PassagesByGrade[g] {
			t.Errorf("grade %s count diverged: %d vs %d", g, a.PassagesByGrade[g], b.PassagesByGrade[g])
		}
	}
}
