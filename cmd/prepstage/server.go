package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/prepstage/prepstage/internal/api"
	"github.com/prepstage/prepstage/internal/cleanup"
	"github.com/prepstage/prepstage/internal/config"
	"github.com/prepstage/prepstage/internal/detect"
	"github.com/prepstage/prepstage/internal/genai"
	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/report"
	"github.com/prepstage/prepstage/internal/scoring"
	"github.com/prepstage/prepstage/internal/session"
	"github.com/prepstage/prepstage/internal/storage"
)

var startCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"serve"},
	Short:   "Start the prepstage server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running prepstage server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show prepstage system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "prepstage.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "prepstage version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure the API bearer token exists before anything binds to it.
	apiToken, err := config.EnsureAPIToken(cfg)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("prepstage is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("prepstage is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Check the generative API before taking requests; question generation
	// and scoring both depend on it.
	ai := genai.New(cfg.GenAI.BaseURL, cfg.GenAI.Model, cfg.GenAI.APIKey)
	if !ai.IsReachable(ctx) {
		printWarning("generative API not reachable at %s, generation and scoring will fail", cfg.GenAI.BaseURL)
	}

	// Load the object detection model if a detector endpoint is configured.
	// Sessions still run without one, just unproctored.
	var model detect.Model
	if cfg.Detector.BaseURL != "" {
		model, err = detect.NewLoader(cfg.Detector.BaseURL).Load(ctx)
		if err != nil {
			printWarning("object detector unavailable: %v", err)
			model = nil
		} else {
			slog.Info("object detection model loaded", "base_url", cfg.Detector.BaseURL)
		}
	}

	// Wire the interview and session layers.
	generator := interview.NewGenerator(ai, cfg.Session.QuestionsPerSection)
	interviews := interview.NewService(store, generator)
	sessions := session.NewManager(session.ManagerConfig{
		Store:          store,
		Interviews:     interviews,
		Cleaner:        cleanup.New(ai),
		Scorer:         scoring.NewScorer(ai),
		Model:          model,
		SampleInterval: cfg.Detector.Interval(),
	})
	defer sessions.StopAll()
	reports := report.NewBuilder(store, interviews)

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:      store,
		Interviews: interviews,
		Sessions:   sessions,
		Reports:    reports,
		UserID:     cfg.User.ID,
		Token:      apiToken,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Interviews: interviews,
		Reports:    reports,
		UserID:     cfg.User.ID,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "prepstage listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("prepstage is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop prepstage (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to prepstage (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check the generative API.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ai := genai.New(cfg.GenAI.BaseURL, cfg.GenAI.Model, cfg.GenAI.APIKey)
	if ai.IsReachable(ctx) {
		printStatus("GenAI", "reachable at %s", cfg.GenAI.BaseURL)
	} else {
		printStatus("GenAI", "not reachable")
	}
	printStatus("Model", "%s", cfg.GenAI.Model)

	if cfg.Detector.BaseURL != "" {
		printStatus("Detector", "%s", cfg.Detector.BaseURL)
	} else {
		printStatus("Detector", "not configured")
	}

	// Show interview count if the server is up.
	if resp != nil && resp.StatusCode == 200 {
		if apiCli, cliErr := newAPIClient(); cliErr == nil {
			if ivResp, ivErr := apiCli.get(ctx, "/interviews"); ivErr == nil {
				var entries []struct {
					Answered int `json:"answered"`
					Total    int `json:"total"`
				}
				if decodeJSON(ivResp, &entries) == nil {
					answered, total := 0, 0
					for _, e := range entries {
						answered += e.Answered
						total += e.Total
					}
					printStatus("Interviews", "%d", len(entries))
					printStatus("Answers", "%d/%d", answered, total)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
