package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fairvalue/internal/api"
	"github.com/wonny/fairvalue/internal/api/handlers"
	"github.com/wonny/fairvalue/internal/scheduler"
	"github.com/wonny/fairvalue/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/stock/{ticker}/valuation    - 종목 평가 (?refresh=true 캐시 무시)
  GET  /api/stock/{ticker}/valuations   - 저장된 평가 이력 (DB 필요)
  POST /api/valuation                   - 직접 입력한 재무 데이터 평가
  GET  /api/benchmarks                  - 벤치마크 테이블

Example:
  go run ./cmd/fairvalue api
  go run ./cmd/fairvalue api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== fairvalue API Server ===")

	ctx := context.Background()

	// 1. Wire dependencies
	a, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 2. Router and server
	handler := handlers.NewValuationHandler(a.valuator, a.log)
	router := api.NewRouter(handler, a.log)
	server := api.New(a.cfg, a.log, router)

	// 3. Background cache sweep
	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewCacheSweepJob(a.log, a.cache, a.quotes)); err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// 4. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Printf("   Benchmarks: %s (version %s)\n", a.table.Version, shortHash(a.valuator.BenchmarkVersion()))
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
