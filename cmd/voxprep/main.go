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
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voxprep/voxprep/internal/api"
	"github.com/voxprep/voxprep/internal/archive"
	"github.com/voxprep/voxprep/internal/interview"
	"github.com/voxprep/voxprep/internal/llm"
	"github.com/voxprep/voxprep/internal/room"
	"github.com/voxprep/voxprep/internal/session"
)

func main() {
	// Local development keeps API keys in .env; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "voxprep",
		Short: "Interview rehearsal server powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `voxprep --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("llm-timeout", 30*time.Second, "Per-call LLM timeout")
	f.String("question-pipeline", string(interview.PipelineFast), "Question pipeline (fast, validated)")
	f.String("room-signing-key", "", "Signing key for media room tokens (empty = text mode)")
	f.Duration("room-token-ttl", 2*time.Hour, "Media room token validity")
	f.String("archive-db", "voxprep.db", "SQLite report archive path (empty = disabled)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List archived interview reports as JSON",
		RunE:  runReports,
	}
	f := cmd.Flags()
	f.String("archive-db", "voxprep.db", "SQLite report archive path")
	f.String("session", "", "Print one session's full report instead of the listing")
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

	v.SetEnvPrefix("VOXPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("voxprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/voxprep")
	v.AddConfigPath("/etc/voxprep")
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

	pipeline := interview.PipelineMode(strings.ToLower(v.GetString("question-pipeline")))
	if !interview.ValidPipelineMode(string(pipeline)) {
		slog.Warn("invalid question-pipeline, using fast", "pipeline", pipeline)
		pipeline = interview.PipelineFast
	}

	llmClient := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		v.GetDuration("llm-timeout"),
	)
	if err := llmClient.Ping(context.Background()); err != nil {
		// Every agent has a deterministic fallback, so a dead endpoint
		// degrades the interview rather than blocking startup.
		slog.Warn("LLM endpoint unreachable, fallbacks will serve", "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	questions := interview.NewQuestionOrchestrator(llmClient, pipeline)
	analyzer := interview.NewAnalysisOrchestrator(llmClient)

	var opts []session.Option
	if key := v.GetString("room-signing-key"); key != "" {
		rooms, err := room.NewTokenProvider(key, v.GetDuration("room-token-ttl"))
		if err != nil {
			return fmt.Errorf("create room provider: %w", err)
		}
		opts = append(opts, session.WithRooms(rooms))
	} else {
		slog.Info("no room signing key, sessions run in text mode")
	}

	var arc *archive.Store
	if path := v.GetString("archive-db"); path != "" {
		var err error
		arc, err = archive.New(path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer arc.Close()
		opts = append(opts, session.WithArchiver(arc))
	}

	manager := session.NewManager(session.NewMemoryStore(), questions, analyzer, opts...)
	handler := api.New(manager, arc)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"pipeline", pipeline,
		"archive", v.GetString("archive-db"),
		"rooms", v.GetString("room-signing-key") != "",
	)
	return http.ListenAndServe(addr, handler.Router())
}

func runReports(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	arc, err := archive.New(v.GetString("archive-db"))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer arc.Close()

	var payload any
	if id := v.GetString("session"); id != "" {
		report, err := arc.GetReport(id)
		if err != nil {
			return fmt.Errorf("load report %s: %w", id, err)
		}
		payload = report
	} else {
		list, err := arc.ListReports()
		if err != nil {
			return fmt.Errorf("list reports: %w", err)
		}
		payload = list
	}

	data, err := json.MarshalIndent(payload, "", "  ")
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
