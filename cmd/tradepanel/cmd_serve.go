package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/avanolabs/tradepanel/internal/assistant"
	"github.com/avanolabs/tradepanel/internal/chat"
	"github.com/avanolabs/tradepanel/internal/config"
	"github.com/avanolabs/tradepanel/internal/fallback"
	"github.com/avanolabs/tradepanel/internal/httpapi"
	"github.com/avanolabs/tradepanel/internal/native"
	"github.com/avanolabs/tradepanel/internal/page"
	"github.com/avanolabs/tradepanel/internal/panel"
	"github.com/avanolabs/tradepanel/internal/state"
	"github.com/avanolabs/tradepanel/pkg/llm"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the native messaging host on stdio",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "tradepanel.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Store and chat core
	sessions := state.NewSessionStore(cfg.DataDir)
	gateway := assistant.New(cfg.LLM.Provider, llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	orch := chat.New(sessions, gateway, fallback.New())

	// Native messaging host on stdio. Stdout carries frames only; all
	// logging goes to stderr.
	conn := native.NewConn(os.Stdin, os.Stdout)
	host := native.NewHost(conn, time.Duration(cfg.Page.TimeoutSeconds)*time.Second)
	dispatcher := page.NewDispatcher(host)

	saveKey := func(provider, key string) error {
		if provider != "" {
			if err := config.SetValue(cfgPath, "llm.provider", provider); err != nil {
				return err
			}
		}
		return config.SetValue(cfgPath, "llm.api_key", key)
	}
	svc := panel.NewService(orch, dispatcher, gateway, saveKey)
	svc.Register(host)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("tradepanel started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"page_timeout_seconds", cfg.Page.TimeoutSeconds,
		"pid_file", pidPath,
	)

	// Inspection HTTP server
	if cfg.HTTPAddr != "" {
		apiSrv := httpapi.NewServer(orch, sessions)
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: apiSrv,
		}
		go func() {
			slog.Info("inspection server started", "listen", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("inspection server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- host.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serveErr:
			// The browser closed the pipe; a native messaging host exits
			// with it.
			if err != nil {
				return fmt.Errorf("native host: %w", err)
			}
			slog.Info("pipe closed, shutting down")
			return nil
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				execPath, err := os.Executable()
				if err != nil {
					slog.Error("failed to get executable path", "error", err)
					continue
				}
				os.Remove(pidPath)
				if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
					slog.Error("failed to re-exec", "error", err)
					if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
						slog.Error("failed to re-write PID file", "error", writeErr)
					}
					continue
				}
			}
			slog.Info("shutting down", "signal", sig)
			return nil
		}
	}
}
