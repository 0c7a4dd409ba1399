package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/examdesk/examdesk/internal/analytics"
	"github.com/examdesk/examdesk/internal/config"
	"github.com/examdesk/examdesk/internal/exam"
	"github.com/examdesk/examdesk/internal/export"
	"github.com/examdesk/examdesk/internal/handler"
	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/qgen"
	"github.com/examdesk/examdesk/internal/report"
	"github.com/examdesk/examdesk/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examdesk",
		Short: "Timed multiple-choice exam server with scoring and analytics",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), reportCmd(), generateCmd(), seedCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examdesk --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examdesk.db", "SQLite database path")
	f.StringSliceP("questions", "q", []string{"questions/sample.json"}, "Paths to questions JSON files (repeatable)")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.IntP("num-questions", "n", 0, "Questions per exam (0 = configured default)")
	f.StringP("category", "c", "", "Restrict exams to one category")
	f.StringP("difficulty", "d", "", "Restrict exams to one difficulty (Easy, Medium, Hard)")
	f.String("admin-password", "", "Initial admin password (or set EXAMDESK_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [results|questions|analytics]",
		Short: "Write a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examdesk.db", "SQLite database path")
	f.StringP("out-dir", "o", ".", "Directory for the export file")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a student's latest exam result as a PDF",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "examdesk.db", "SQLite database path")
	f.StringP("username", "u", "", "Student username (required)")
	f.StringP("output", "o", "", "Output PDF path (default: timestamped name)")
	f.Bool("simple", false, "One-page summary instead of the full report")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft questions with an LLM and print them as JSON",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("db", "examdesk.db", "SQLite database path")
	f.StringP("category", "c", "General", "Category for the drafted questions")
	f.StringP("difficulty", "d", "Medium", "Difficulty (Easy, Medium, Hard)")
	f.IntP("count", "n", 5, "Number of questions to draft")
	f.Bool("save", false, "Insert the drafts into the question bank")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import question files into the database without serving",
		RunE:  runSeed,
	}
	f := cmd.Flags()
	f.String("db", "examdesk.db", "SQLite database path")
	f.StringSliceP("questions", "q", []string{"questions/sample.json"}, "Paths to questions JSON files (repeatable)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
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
	config.SetDefaults(v)
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examdesk")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examdesk")
	v.AddConfigPath("/etc/examdesk")
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

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if n := v.GetInt("num-questions"); n > 0 {
		cfg.QuestionsPerExam = n
	}
	cfg.Category = v.GetString("category")
	cfg.Difficulty = model.Difficulty(v.GetString("difficulty"))

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	}

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := loadQuestions(db, v.GetStringSlice("questions"), cfg); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	slog.Debug("locales loaded", "languages", appI18n.Languages())

	manager := exam.NewManager(db, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)
	go func() {
		for userID := range manager.Timeouts() {
			slog.Info("exam auto-submitted on timeout", "user_id", userID)
		}
	}()

	h := handler.New(db, manager, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"questions_per_exam", cfg.QuestionsPerExam,
		"exam_duration", cfg.ExamDuration,
		"category", cfg.Category,
		"difficulty", cfg.Difficulty,
		"randomize", cfg.RandomizeQuestions,
	)
	return http.ListenAndServe(addr, r)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadQuestions(db, v.GetStringSlice("questions"), cfg); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	count, err := db.QuestionCount()
	if err != nil {
		return err
	}
	slog.Info("question bank ready", "total", count)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	outDir := v.GetString("out-dir")
	now := time.Now()

	var path string
	switch args[0] {
	case "results":
		rows, err := db.AllResultRows()
		if err != nil {
			return fmt.Errorf("load results: %w", err)
		}
		path = export.Filename(outDir, "student_results", now)
		err = export.ToFile(path, func(w io.Writer) error {
			return export.StudentResults(w, rows)
		})
		if err != nil {
			return err
		}
	case "questions":
		questions, err := db.ListQuestions()
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		path = export.Filename(outDir, "question_bank", now)
		err = export.ToFile(path, func(w io.Writer) error {
			return export.QuestionBank(w, questions)
		})
		if err != nil {
			return err
		}
	case "analytics":
		stats, err := db.AdminStats()
		if err != nil {
			return fmt.Errorf("compute stats: %w", err)
		}
		path = export.Filename(outDir, "analytics_report", now)
		err = export.ToFile(path, func(w io.Writer) error {
			return export.AnalyticsReport(w, stats, now)
		})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export kind %q (want results, questions or analytics)", args[0])
	}

	fmt.Println(path)
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	username := v.GetString("username")
	user, err := db.GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("no such user %q", username)
	}

	results, err := db.ResultsForUser(user.ID, 0)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("user %q has no exam results", username)
	}
	latest := results[0]

	outPath := v.GetString("output")
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	if v.GetBool("simple") {
		if outPath == "" {
			outPath = report.Filename("exam_summary", username, time.Now())
		}
		if err := report.Summary(outPath, *user, latest); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	} else {
		if outPath == "" {
			outPath = report.Filename("exam_report", username, time.Now())
		}
		// Persisted results keep the tally breakdowns but not the
		// question set, so the review section is omitted here.
		in := report.Input{
			User:     *user,
			Result:   latest,
			Duration: cfg.ExamDuration,
		}
		if err := report.Detailed(outPath, in); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	summary := analytics.Summarize(results)
	slog.Info("report written", "path", outPath, "exams", summary.TotalExams, "best", summary.BestScore)
	fmt.Println(outPath)
	return nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	client := qgen.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)

	category := v.GetString("category")
	difficulty := model.Difficulty(v.GetString("difficulty"))
	count := v.GetInt("count")

	drafts, err := client.Draft(context.Background(), category, difficulty, count)
	if err != nil {
		return fmt.Errorf("draft questions: %w", err)
	}
	slog.Info("drafted questions", "requested", count, "valid", len(drafts))

	if v.GetBool("save") {
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		for _, qi := range drafts {
			_, err := db.InsertQuestion(model.Question{
				Prompt:  qi.Prompt,
				OptionA: qi.OptionA, OptionB: qi.OptionB, OptionC: qi.OptionC, OptionD: qi.OptionD,
				CorrectOption: qi.CorrectOption,
				Category:      qi.Category,
				Difficulty:    qi.Difficulty,
				Points:        qi.Points,
				Explanation:   qi.Explanation,
			})
			if err != nil {
				return fmt.Errorf("insert drafted question: %w", err)
			}
		}
		slog.Info("saved drafts to question bank", "count", len(drafts))
	}

	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
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
	_, _ = fmt.Fprintln(w)
	return nil
}

func loadQuestions(db *store.Store, paths []string, cfg config.Config) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("questions file not found, skipping", "path", path)
				continue
			}
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to avoid duplicates", "path", path)
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, qi := range questions {
			if qi.Points <= 0 {
				qi.Points = cfg.DefaultPoints(qi.Difficulty)
			}
			_, err := db.InsertQuestion(model.Question{
				Prompt:  qi.Prompt,
				OptionA: qi.OptionA, OptionB: qi.OptionB, OptionC: qi.OptionC, OptionD: qi.OptionD,
				CorrectOption: qi.CorrectOption,
				Category:      qi.Category,
				Difficulty:    qi.Difficulty,
				Points:        qi.Points,
				Explanation:   qi.Explanation,
			})
			if err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", len(questions))
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMDESK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		PasswordHash: string(hash),
		FullName:     "Administrator",
		IsAdmin:      true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
