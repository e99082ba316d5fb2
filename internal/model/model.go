package model

import (
	"strings"
	"time"
)

// Grade represents a school grade level.
type Grade string

const (
	GradeK Grade = "K"
	Grade1 Grade = "1"
	Grade2 Grade = "2"
	Grade3 Grade = "3"
	Grade4 Grade = "4"
	Grade5 Grade = "5"
)

// Grades lists all grade levels in school order.
var Grades = []Grade{GradeK, Grade1, Grade2, Grade3, Grade4, Grade5}

// GradeLevel describes the reading expectations of one grade.
type GradeLevel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MinWords    int    `json:"min_words"`
	MaxWords    int    `json:"max_words"`
}

// GradeLevels maps each grade to its level description.
var GradeLevels = map[Grade]GradeLevel{
	GradeK: {Name: "Kindergarten", Description: "Simple sentences, basic vocabulary", MinWords: 20, MaxWords: 50},
	Grade1: {Name: "Grade 1", Description: "Short stories with simple plots", MinWords: 50, MaxWords: 100},
	Grade2: {Name: "Grade 2", Description: "Developing stories with clear sequence", MinWords: 100, MaxWords: 150},
	Grade3: {Name: "Grade 3", Description: "Stories with multiple characters and events", MinWords: 150, MaxWords: 250},
	Grade4: {Name: "Grade 4", Description: "Complex narratives and informational texts", MinWords: 250, MaxWords: 400},
	Grade5: {Name: "Grade 5", Description: "Advanced texts with abstract concepts", MinWords: 400, MaxWords: 600},
}

// ParseGrade normalizes a grade token. The second return value reports
// whether the token names a known grade.
func ParseGrade(s string) (Grade, bool) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := GradeLevels[g]
	return g, ok
}

// PassageType distinguishes narrative from informational passages.
type PassageType string

const (
	PassageStory         PassageType = "story"
	PassageInformational PassageType = "informational"
)

// QuestionType classifies the comprehension skill a question exercises.
// Content files may carry type names outside this set; those still flow
// through evaluation and fall back to generic feedback templates.
type QuestionType string

const (
	TypeMainIdea            QuestionType = "Main Idea"
	TypeDetail              QuestionType = "Detail"
	TypeSupportingDetails   QuestionType = "Supporting Details"
	TypeInference           QuestionType = "Inference"
	TypeVocabulary          QuestionType = "Vocabulary"
	TypeVocabularyInContext QuestionType = "Vocabulary in Context"
	TypeSequence            QuestionType = "Sequence"
	TypeCauseEffect         QuestionType = "Cause and Effect"
	TypeTheme               QuestionType = "Theme"
	TypeThemeAnalysis       QuestionType = "Theme Analysis"
	TypeCharacterTraits     QuestionType = "Character Traits"
	TypeCharacterAnalysis   QuestionType = "Character Analysis"
	TypeAuthorsPurpose      QuestionType = "Author's Purpose"
)

// Passage is a fixed block of text assigned to one grade level.
type Passage struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Grade   Grade       `json:"grade"`
	Type    PassageType `json:"type"`
	Content string      `json:"content"`
}

// Question is a single multiple-choice comprehension item tied to one
// passage. Options maps the single-letter keys A-D to display text;
// CorrectKey is always one of the option keys.
type Question struct {
	ID          string            `json:"id"`
	PassageID   string            `json:"passage_id"`
	Type        QuestionType      `json:"type"`
	Text        string            `json:"question"`
	Options     map[string]string `json:"options"`
	CorrectKey  string            `json:"answer"`
	Explanation string            `json:"explanation"`
}

// CheckAnswer reports whether the submitted option key matches the
// correct key. The comparison is case-insensitive; keys outside the
// option set simply never match.
func (q Question) CheckAnswer(key string) bool {
	return strings.EqualFold(key, q.CorrectKey)
}

// OptionText returns the display text for an option key, or an empty
// string for keys outside the option set.
func (q Question) OptionText(key string) string {
	return q.Options[strings.ToUpper(strings.TrimSpace(key))]
}

// EvaluationResult is the outcome of checking one submitted answer.
type EvaluationResult struct {
	Correct      bool         `json:"correct"`
	Feedback     string       `json:"feedback"`
	Explanation  string       `json:"explanation"`
	WhyWrong     string       `json:"why_wrong,omitempty"`
	QuestionType QuestionType `json:"question_type"`
}

// TypeStats accumulates correct/total counts for one question type.
type TypeStats struct {
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// PerformanceSummary aggregates a list of evaluation results.
type PerformanceSummary struct {
	TotalQuestions int                        `json:"total_questions"`
	CorrectAnswers int                        `json:"correct_answers"`
	Accuracy       float64                    `json:"accuracy"`
	ByType         map[QuestionType]TypeStats `json:"performance_by_type"`
}

// Session records one completed pass through a passage's question set.
type Session struct {
	Date           time.Time          `json:"date"`
	Grade          Grade              `json:"grade"`
	PassageID      string             `json:"passage_id"`
	PassageTitle   string             `json:"passage_title"`
	TotalQuestions int                `json:"total_questions"`
	CorrectAnswers int                `json:"correct_answers"`
	Accuracy       float64            `json:"accuracy"`
	Results        []EvaluationResult `json:"results"`
}

// OverallStats is a snapshot of the running aggregate counters.
type OverallStats struct {
	TotalPassagesRead      int           `json:"total_passages_read"`
	TotalQuestionsAnswered int           `json:"total_questions_answered"`
	TotalCorrect           int           `json:"total_correct"`
	OverallAccuracy        float64       `json:"overall_accuracy"`
	PassagesByGrade        map[Grade]int `json:"passages_by_grade"`
}

// GradeStats summarizes all sessions recorded for one grade.
type GradeStats struct {
	PassagesRead    int     `json:"passages_read"`
	TotalQuestions  int     `json:"total_questions"`
	TotalCorrect    int     `json:"total_correct"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// ServerConfig carries the runtime settings the HTTP handlers need.
type ServerConfig struct {
	Lang         string
	SpeechVoice  string
	ProgressFile string
}

// PassageImport is used for loading passages and their questions from
// content JSON files.
type PassageImport struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Grade     Grade            `json:"grade"`
	Type      PassageType      `json:"type"`
	Content   string           `json:"content"`
	Questions []QuestionImport `json:"questions"`
}

// QuestionImport is one question inside a content JSON file.
type QuestionImport struct {
	ID          string            `json:"id"`
	Type        QuestionType      `json:"type"`
	Text        string            `json:"question"`
	Options     map[string]string `json:"options"`
	CorrectKey  string            `json:"answer"`
	Explanation string            `json:"explanation"`
}
