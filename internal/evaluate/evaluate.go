// Package evaluate scores submitted answers and derives performance
// feedback. Every function is pure: results depend only on the inputs.
package evaluate

import (
	"fmt"

	"readquest/internal/model"
)

const correctFeedback = "Excellent! That's correct!"

// Answer checks a submitted option key against a question. Keys outside
// the option set are scored as incorrect; they are never an error.
func Answer(q model.Question, key string) model.EvaluationResult {
	if q.CheckAnswer(key) {
		return model.EvaluationResult{
			Correct:      true,
			Feedback:     correctFeedback,
			Explanation:  q.Explanation,
			QuestionType: q.Type,
		}
	}
	return model.EvaluationResult{
		Correct:      false,
		Feedback:     fmt.Sprintf("Not quite. The correct answer is %s.", q.CorrectKey),
		Explanation:  q.Explanation,
		WhyWrong:     whyWrong(q, key),
		QuestionType: q.Type,
	}
}

// whyWrong builds a kid-friendly explanation for an incorrect answer,
// templated by question type. Unknown types get the generic template so
// no answer goes unexplained.
func whyWrong(q model.Question, key string) string {
	chosen := q.OptionText(key)
	correct := q.OptionText(q.CorrectKey)

	switch q.Type {
	case model.TypeMainIdea:
		return fmt.Sprintf("Remember, the main idea is what the WHOLE story is mostly about. '%s' might be mentioned, but it's not the main point of the story.", chosen)
	case model.TypeSupportingDetails:
		return fmt.Sprintf("Look back at the story carefully. The story tells us that '%s', not '%s'. Try to find the exact words in the text!", correct, chosen)
	case model.TypeDetail:
		return fmt.Sprintf("This is a tricky detail! The story actually says '%s'. When you read, try to remember the important facts!", correct)
	case model.TypeInference:
		return fmt.Sprintf("Good try! When we make inferences, we use clues from the story. The clues tell us '%s' instead of '%s'. What hints can you find?", correct, chosen)
	case model.TypeVocabulary:
		return fmt.Sprintf("Word meanings can be tricky! In this story, the word means '%s', not '%s'. Try to look at the words around it for hints!", correct, chosen)
	case model.TypeVocabularyInContext:
		return fmt.Sprintf("Great effort! The context clues in the story show us the word means '%s'. Read the sentence before and after to find hints!", correct)
	case model.TypeSequence:
		return fmt.Sprintf("Let's think about the order! First, then, next... The story shows us '%s' is what happened. Try making a timeline!", correct)
	case model.TypeCauseEffect:
		return fmt.Sprintf("Remember: cause is WHY something happened, effect is WHAT happened. The answer is '%s' because that's what the story tells us!", correct)
	case model.TypeTheme:
		return fmt.Sprintf("Themes are the big lessons in stories. This story's message is '%s', not '%s'. What did the characters learn?", correct, chosen)
	case model.TypeThemeAnalysis:
		return fmt.Sprintf("You're thinking deep! But the main theme is '%s'. Think about what lesson the story teaches us!", correct)
	case model.TypeCharacterTraits:
		return fmt.Sprintf("Good thinking about the character! But they show us '%s' through their words and actions. What did they do that shows this?", correct)
	case model.TypeCharacterAnalysis:
		return fmt.Sprintf("Nice try! The character's actions tell us '%s'. Pay attention to what they say and do!", correct)
	case model.TypeAuthorsPurpose:
		return fmt.Sprintf("Think about WHY the author wrote this. They wanted to '%s'. What was their goal?", correct)
	default:
		return fmt.Sprintf("The correct answer is '%s'. Read the story again and see if you can find clues that tell you why!", correct)
	}
}

// Summarize computes aggregate statistics over a list of results. An
// empty list yields an all-zero summary with an empty per-type map.
func Summarize(results []model.EvaluationResult) model.PerformanceSummary {
	summary := model.PerformanceSummary{
		ByType: map[model.QuestionType]model.TypeStats{},
	}
	if len(results) == 0 {
		return summary
	}

	for _, r := range results {
		summary.TotalQuestions++
		if r.Correct {
			summary.CorrectAnswers++
		}
		ts := summary.ByType[r.QuestionType]
		ts.Total++
		if r.Correct {
			ts.Correct++
		}
		summary.ByType[r.QuestionType] = ts
	}

	summary.Accuracy = float64(summary.CorrectAnswers) / float64(summary.TotalQuestions) * 100
	for qt, ts := range summary.ByType {
		ts.Accuracy = float64(ts.Correct) / float64(ts.Total) * 100
		summary.ByType[qt] = ts
	}
	return summary
}

// PerformanceLevel maps an accuracy percentage to a qualitative label.
// Tiers are inclusive on their lower bound, highest tier first.
func PerformanceLevel(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return "Outstanding! You have excellent reading comprehension skills!"
	case accuracy >= 80:
		return "Great job! You're doing very well!"
	case accuracy >= 70:
		return "Good work! Keep practicing to improve further."
	case accuracy >= 60:
		return "You're making progress. Try reading more carefully."
	default:
		return "Keep practicing! Reading comprehension takes time to develop."
	}
}

// recommendationThreshold is the accuracy below which a question type
// earns a targeted recommendation.
const recommendationThreshold = 70

// Recommendations derives study suggestions from a per-type breakdown.
// Every type strictly below the threshold produces one recommendation;
// unknown types get a generic one rather than being skipped. When
// nothing falls below the threshold the single encouragement string is
// returned instead of an empty list.
func Recommendations(byType map[model.QuestionType]model.TypeStats) []string {
	var recs []string
	// Walk types in a fixed order so output is stable across runs.
	for _, qt := range knownTypeOrder {
		ts, ok := byType[qt]
		if ok && ts.Accuracy < recommendationThreshold {
			recs = append(recs, recommendationFor(qt))
		}
	}
	for qt, ts := range byType {
		if !isKnownType(qt) && ts.Accuracy < recommendationThreshold {
			recs = append(recs, recommendationFor(qt))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "You're doing great! Continue practicing with different types of texts to maintain your skills.")
	}
	return recs
}

var knownTypeOrder = []model.QuestionType{
	model.TypeMainIdea,
	model.TypeDetail,
	model.TypeSupportingDetails,
	model.TypeInference,
	model.TypeVocabulary,
	model.TypeVocabularyInContext,
	model.TypeSequence,
	model.TypeCauseEffect,
	model.TypeTheme,
	model.TypeThemeAnalysis,
	model.TypeCharacterTraits,
	model.TypeCharacterAnalysis,
	model.TypeAuthorsPurpose,
}

func isKnownType(qt model.QuestionType) bool {
	for _, k := range knownTypeOrder {
		if k == qt {
			return true
		}
	}
	return false
}

func recommendationFor(qt model.QuestionType) string {
	switch qt {
	case model.TypeMainIdea:
		return "Practice identifying the main idea by asking: 'What is this passage mostly about?'"
	case model.TypeDetail, model.TypeSupportingDetails:
		return "Improve detail recognition by reading more carefully and underlining important facts."
	case model.TypeInference:
		return "Work on making inferences by thinking about what the text suggests but doesn't directly say."
	case model.TypeVocabulary, model.TypeVocabularyInContext:
		return "Build vocabulary by using context clues to figure out word meanings."
	case model.TypeSequence:
		return "Practice sequence by paying attention to time order words like 'first,' 'then,' 'next,' and 'finally.'"
	case model.TypeCauseEffect:
		return "Understand cause and effect by looking for words like 'because,' 'so,' 'since,' and 'therefore.'"
	case model.TypeTheme, model.TypeThemeAnalysis:
		return "Identify themes by thinking about the deeper message or lesson in the story."
	case model.TypeCharacterAnalysis, model.TypeCharacterTraits:
		return "Analyze characters by paying attention to what they say, do, and how they change."
	case model.TypeAuthorsPurpose:
		return "Think about the author's purpose: were they trying to entertain, inform, or persuade?"
	default:
		return fmt.Sprintf("Keep working on %s questions by rereading the passage and looking for evidence in the text.", qt)
	}
}
