package main

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"readquest/internal/content"
	"readquest/internal/evaluate"
	"readquest/internal/handler"
	appI18n "readquest/internal/i18n"
	"readquest/internal/model"
	"readquest/internal/progress"
	"readquest/internal/speech"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "readquest",
		Short: "Reading comprehension practice for grades K-5",
	}

	serve := serveCmd()
	root.AddCommand(serve, practiceCmd(), reportCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `readquest --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP practice server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "readquest.db", "SQLite database path")
	f.StringSliceP("content", "c", []string{"content/reading_en.json"}, "Paths to content JSON files (repeatable)")
	f.StringP("lang", "l", "en", "UI language (en, es)")
	f.String("progress-file", "reading_progress.json", "Progress document path")
	f.String("speech-voice", "alloy", "Text-to-speech voice (alloy, echo, fable, onyx, nova, shimmer)")
	f.String("speech-cache", "audio_cache", "Directory for cached audio files")
	f.String("openai-api-key", "", "OpenAI API key for text-to-speech (or set OPENAI_API_KEY)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func practiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run an interactive practice session in the terminal",
		RunE:  runPractice,
	}
	f := cmd.Flags()
	f.String("db", "readquest.db", "SQLite database path")
	f.StringSliceP("content", "c", []string{"content/reading_en.json"}, "Paths to content JSON files (repeatable)")
	f.StringP("lang", "l", "en", "UI language (en, es)")
	f.String("progress-file", "reading_progress.json", "Progress document path")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a progress report",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "UI language (en, es)")
	f.String("progress-file", "reading_progress.json", "Progress document path")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export progress history as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("progress-file", "reading_progress.json", "Progress document path")
	f.String("student", "", "Student name included in export metadata")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("READQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("readquest")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/readquest")
	v.AddConfigPath("/etc/readquest")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := content.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadContent(db, v.GetStringSlice("content")); err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	progressFile := v.GetString("progress-file")
	tracker, outcome, err := progress.New(progressFile)
	if err != nil {
		return fmt.Errorf("open progress file: %w", err)
	}
	if outcome == progress.ResetCorrupt {
		slog.Warn("progress file was corrupt and has been reset", "path", progressFile)
	}

	speechClient := newSpeechClient(v)

	cfg := model.ServerConfig{
		Lang:         lang,
		SpeechVoice:  v.GetString("speech-voice"),
		ProgressFile: progressFile,
	}
	h := handler.New(db, tracker, speechClient, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"progress_file", progressFile,
		"audio", speechClient != nil,
	)
	return http.ListenAndServe(addr, r)
}

// newSpeechClient builds the TTS client when an API key is configured.
// Audio stays disabled otherwise.
func newSpeechClient(v *viper.Viper) *speech.Client {
	key := v.GetString("openai-api-key")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		slog.Info("no OpenAI API key configured, audio disabled")
		return nil
	}

	c, err := speech.New(key, v.GetString("speech-voice"), v.GetString("speech-cache"))
	if err != nil {
		slog.Warn("text-to-speech unavailable", "error", err)
		return nil
	}
	slog.Info("text-to-speech enabled",
		"voice", v.GetString("speech-voice"),
		"api_key", speech.MaskAPIKey(key),
	)
	return c
}

func runPractice(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := content.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadContent(db, v.GetStringSlice("content")); err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	tracker, outcome, err := progress.New(v.GetString("progress-file"))
	if err != nil {
		return fmt.Errorf("open progress file: %w", err)
	}

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	fmt.Fprintln(out, appI18n.T(ctx, "AppTitle"))
	fmt.Fprintln(out, appI18n.T(ctx, "Welcome"))
	fmt.Fprintln(out, appI18n.T(ctx, "WelcomeSub"))
	if outcome == progress.ResetCorrupt {
		fmt.Fprintln(out, appI18n.T(ctx, "ProgressReset"))
	}

	for {
		grade, ok := promptGrade(ctx, in, out, db)
		if !ok {
			break
		}

		passage, ok := promptPassage(ctx, in, out, db, grade)
		if !ok {
			continue
		}

		questions, err := db.QuestionsForPassage(passage.ID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		fmt.Fprintf(out, "\n%s\n\n%s\n", passage.Title, passage.Content)

		results := make([]model.EvaluationResult, 0, len(questions))
		for i, q := range questions {
			fmt.Fprintf(out, "\n%s\n", appI18n.Td(ctx, "QuestionN", map[string]any{
				"Number": i + 1,
				"Total":  len(questions),
			}))
			fmt.Fprintln(out, q.Text)
			for _, key := range []string{"A", "B", "C", "D"} {
				fmt.Fprintf(out, "  %s. %s\n", key, q.Options[key])
			}

			answer, ok := promptAnswer(ctx, in, out)
			if !ok {
				answer = ""
			}
			res := evaluate.Answer(q, answer)
			results = append(results, res)

			fmt.Fprintln(out, res.Feedback)
			if !res.Correct {
				fmt.Fprintln(out, res.WhyWrong)
			}
			fmt.Fprintln(out, res.Explanation)
		}

		summary := evaluate.Summarize(results)
		fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "SessionSummary"))
		fmt.Fprintf(out, "%d/%d (%.1f%%)\n", summary.CorrectAnswers, summary.TotalQuestions, summary.Accuracy)
		fmt.Fprintln(out, evaluate.PerformanceLevel(summary.Accuracy))

		recs := evaluate.Recommendations(summary.ByType)
		if len(recs) > 0 {
			fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "Recommendations"))
			for _, rec := range recs {
				fmt.Fprintf(out, "  - %s\n", rec)
			}
		}

		if _, err := tracker.RecordSession(grade, passage.ID, passage.Title, results); err != nil {
			return fmt.Errorf("record session: %w", err)
		}
	}

	fmt.Fprintln(out, appI18n.T(ctx, "Goodbye"))
	return nil
}

// promptGrade shows the grade menu and reads a grade token (K-5). The
// second return value is false when the student quits.
func promptGrade(ctx context.Context, in *bufio.Scanner, out io.Writer, db *content.Store) (model.Grade, bool) {
	grades, err := db.GradesWithContent()
	if err != nil || len(grades) == 0 {
		fmt.Fprintln(out, appI18n.T(ctx, "NoPassages"))
		return "", false
	}

	fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "SelectGrade"))
	for _, g := range grades {
		level := model.GradeLevels[g]
		fmt.Fprintf(out, "  %s: %s (%s)\n", g, level.Name, level.Description)
	}

	for {
		fmt.Fprint(out, appI18n.T(ctx, "GradePrompt"))
		line, ok := readLine(in)
		if !ok || strings.EqualFold(line, "q") {
			return "", false
		}
		if g, ok := model.ParseGrade(line); ok {
			return g, true
		}
		fmt.Fprintln(out, appI18n.T(ctx, "InvalidGrade"))
	}
}

// promptPassage lists the grade's passages and reads a selection.
func promptPassage(ctx context.Context, in *bufio.Scanner, out io.Writer, db *content.Store, grade model.Grade) (model.Passage, bool) {
	passages, err := db.ListPassagesByGrade(grade)
	if err != nil || len(passages) == 0 {
		fmt.Fprintln(out, appI18n.T(ctx, "NoPassages"))
		return model.Passage{}, false
	}

	fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "SelectPassage"))
	for i, p := range passages {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p.Title)
	}

	for {
		fmt.Fprint(out, appI18n.T(ctx, "PassagePrompt"))
		line, ok := readLine(in)
		if !ok || strings.EqualFold(line, "q") {
			return model.Passage{}, false
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(passages) {
			return passages[n-1], true
		}
		fmt.Fprintln(out, appI18n.T(ctx, "InvalidAnswer"))
	}
}

// promptAnswer reads an A-D choice. The second return value is false
// when input runs out.
func promptAnswer(ctx context.Context, in *bufio.Scanner, out io.Writer) (string, bool) {
	for {
		fmt.Fprint(out, appI18n.T(ctx, "AnswerPrompt"))
		line, ok := readLine(in)
		if !ok {
			return "", false
		}
		answer := strings.ToUpper(strings.TrimSpace(line))
		switch answer {
		case "A", "B", "C", "D":
			return answer, true
		}
		fmt.Fprintln(out, appI18n.T(ctx, "InvalidAnswer"))
	}
}

func readLine(in *bufio.Scanner) (string, bool) {
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	tracker, outcome, err := progress.New(v.GetString("progress-file"))
	if err != nil {
		return fmt.Errorf("open progress file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, appI18n.T(ctx, "ProgressReport"))

	if outcome != progress.LoadedExisting {
		fmt.Fprintln(out, appI18n.T(ctx, "NoProgressYet"))
		return nil
	}

	stats := tracker.OverallStats()
	fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "OverallStats"))
	fmt.Fprintf(out, "  %s\n", appI18n.Tp(ctx, "PassagesRead", stats.TotalPassagesRead))
	fmt.Fprintf(out, "  %s\n", appI18n.Tp(ctx, "QuestionsAnswered", stats.TotalQuestionsAnswered))
	fmt.Fprintf(out, "  %s\n", appI18n.Tp(ctx, "CorrectAnswers", stats.TotalCorrect))
	fmt.Fprintf(out, "  %.1f%%\n", stats.OverallAccuracy)

	fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "ByGrade"))
	for _, g := range model.Grades {
		if gs := tracker.GradePerformance(g); gs != nil {
			level := model.GradeLevels[g]
			fmt.Fprintf(out, "  %s: %d passages, %.1f%%\n", level.Name, gs.PassagesRead, gs.AverageAccuracy)
		}
	}

	fmt.Fprintf(out, "\n%s\n", appI18n.T(ctx, "RecentSessions"))
	for _, s := range tracker.RecentSessions(5) {
		fmt.Fprintf(out, "  %s  %-30s %d/%d (%.1f%%)\n",
			s.Date.Format("2006-01-02"), s.PassageTitle, s.CorrectAnswers, s.TotalQuestions, s.Accuracy)
	}

	fmt.Fprintf(out, "\n%s: %s\n", appI18n.T(ctx, "Trend"), tracker.ImprovementTrend())
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	tracker, _, err := progress.New(v.GetString("progress-file"))
	if err != nil {
		return fmt.Errorf("open progress file: %w", err)
	}

	export := model.ProgressExport{
		Student:    v.GetString("student"),
		ExportedAt: time.Now().UTC(),
		Overall:    tracker.OverallStats(),
		Trend:      tracker.ImprovementTrend(),
		Sessions:   tracker.AllSessions(),
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// loadContent imports passage files into the store, skipping files whose
// contents have not changed since the last import.
func loadContent(db *content.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("content file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("content file changed since last import, skipping to avoid duplicate passages",
				"path", path)
			continue
		}

		var passages []model.PassageImport
		if err := json.Unmarshal(data, &passages); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		if err := db.Import(passages); err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported passages", "path", path, "count", len(passages))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
