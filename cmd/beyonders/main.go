package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/peop360/beyonders/internal/bank"
	"github.com/peop360/beyonders/internal/handler"
	appI18n "github.com/peop360/beyonders/internal/i18n"
	"github.com/peop360/beyonders/internal/llm"
	"github.com/peop360/beyonders/internal/model"
	"github.com/peop360/beyonders/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "beyonders",
		Short: "Adaptive psychometric assessment engine",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `beyonders --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP assessment server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "beyonders.db", "SQLite database path")
	f.String("questions", "", "Path to questions JSON file (empty = embedded catalog)")
	f.String("cards", "", "Path to narrative cards JSON file (empty = embedded catalog)")
	f.String("llm-url", "https://api.groq.com/openai/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for LLM")
	f.String("llm-model", "llama-3.3-70b-versatile", "LLM model name")
	f.StringP("lang", "l", "en", "Default message language (en, hi); requests may override")
	f.IntP("num-questions", "n", 30, "Number of MCQ questions per assessment")
	f.Int("num-cards", 3, "Number of narrative prompts per assessment")
	f.Int("min-story-length", 50, "Minimum story length in characters")
	f.StringSlice("allowed-origins", nil, "CORS allowed origins (empty = same-origin only)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-code", "", "Initial admin access code (or set BEYONDERS_ADMIN_CODE)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export assessment reports as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "beyonders.db", "SQLite database path")
	f.String("batch-id", "", "Batch identifier (overrides the stored value)")
	f.String("institution", "", "Institution name (overrides the stored value)")
	f.String("date", "", "Assessment date, YYYY-MM-DD (overrides the stored value)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
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
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("BEYONDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("beyonders")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/beyonders")
	v.AddConfigPath("/etc/beyonders")
	v.AddConfigPath("/data")
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

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-code")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Load catalogs (embedded defaults unless overridden).
	qBank, err := bank.Load(v.GetString("questions"), v.GetString("cards"))
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Create LLM client.
	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		// Analysis failures degrade to documented defaults, so an
		// unreachable endpoint at startup is a warning, not a fatal.
		slog.Warn("LLM health check failed, analysis will use fallbacks", "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	cfg := handler.Config{
		MCQCount:       v.GetInt("num-questions"),
		CardCount:      v.GetInt("num-cards"),
		MinStoryLength: v.GetInt("min-story-length"),
		SecureCookies:  v.GetBool("secure-cookies"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
	}

	h := handler.New(db, qBank, llmClient, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"num_questions", cfg.MCQCount,
		"num_cards", cfg.CardCount,
		"science_questions", qBank.QuestionCount(model.TrackScience),
		"non_science_questions", qBank.QuestionCount(model.TrackNonScience),
		"cards", qBank.CardCount(),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Batch identity lives in the database; flags override and are
	// persisted for the next export.
	info, err := db.ResolveBatchInfo(store.BatchInfo{
		BatchID:     v.GetString("batch-id"),
		Institution: v.GetString("institution"),
		Date:        v.GetString("date"),
	})
	if err != nil {
		return fmt.Errorf("resolve batch info: %w", err)
	}
	if info.BatchID == "" || info.Institution == "" || info.Date == "" {
		return fmt.Errorf("batch-id, institution, and date must be set via flags or stored metadata")
	}

	results, err := db.ExportAllReports()
	if err != nil {
		return fmt.Errorf("export reports: %w", err)
	}

	export := model.ReportExport{
		BatchID:     info.BatchID,
		Institution: info.Institution,
		Date:        info.Date,
		NumReports:  len(results),
		Results:     results,
	}

	data, err := json.MarshalIndent(export, "", "  ")
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

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, adminCode string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if adminCode == "" {
		adminCode = os.Getenv("BEYONDERS_ADMIN_CODE")
	}
	if adminCode == "" {
		slog.Warn("no users exist and no admin code provided, skipping admin seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminCode), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.CreateUser(model.User{
		Username:    "admin",
		DisplayName: "Administrator",
		CodeHash:    string(hash),
		Role:        model.UserRoleAdmin,
		Active:      true,
	})
	return err
}
