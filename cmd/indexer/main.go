package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pumpfun-indexer/internal/bus"
	"pumpfun-indexer/internal/bus/membus"
	"pumpfun-indexer/internal/bus/redisbus"
	"pumpfun-indexer/internal/ingester"
	"pumpfun-indexer/internal/observability"
	"pumpfun-indexer/internal/parser"
	"pumpfun-indexer/internal/price"
	"pumpfun-indexer/internal/reconciler"
	"pumpfun-indexer/internal/solana"
	"pumpfun-indexer/internal/storage"
	chstore "pumpfun-indexer/internal/storage/clickhouse"
	"pumpfun-indexer/internal/storage/memory"
	"pumpfun-indexer/internal/storage/migrations"
	pgstore "pumpfun-indexer/internal/storage/postgres"
	"pumpfun-indexer/internal/worker"
)

func main() {
	// Load .env file if present; real env vars take precedence
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	mode := flag.String("mode", "all", "Run mode: ingest, work, or all")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (empty disables price history)")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for the signature bus")
	redisChannel := flag.String("redis-channel", redisbus.DefaultChannel, "Redis Pub/Sub channel for signatures")
	programID := flag.String("program-id", parser.PumpFunProgramID, "Program ID to monitor")
	concurrency := flag.Int("concurrency", worker.DefaultConcurrency, "Number of transactions processed in parallel")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[indexer] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Run based on mode
	var err error
	switch *mode {
	case "ingest":
		err = runIngest(ctx, logger, *wsEndpoint, *redisURL, *redisChannel, *programID)
	case "work":
		err = runWork(ctx, logger, *rpcEndpoint, *postgresDSN, *clickhouseDSN, *redisURL, *redisChannel, *concurrency, *useMemory)
	case "all":
		err = runAll(ctx, logger, *rpcEndpoint, *wsEndpoint, *postgresDSN, *clickhouseDSN, *programID, *concurrency, *useMemory)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// runIngest streams program logs and publishes signatures to Redis.
func runIngest(ctx context.Context, logger *log.Logger, wsEndpoint, redisURL, redisChannel, programID string) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for ingest mode")
	}
	if redisURL == "" {
		return fmt.Errorf("--redis-url is required for ingest mode")
	}

	b, err := redisbus.New(ctx, redisURL, redisChannel, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer b.Close()

	ws, err := solana.NewWSClient(ctx, wsEndpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	logger.Println("Starting log ingestion...")
	return ingester.New(ws, b, programID, logger).Run(ctx)
}

// runWork consumes signatures from Redis, resolves and applies them.
func runWork(ctx context.Context, logger *log.Logger, rpcEndpoint, postgresDSN, clickhouseDSN, redisURL, redisChannel string, concurrency int, useMemory bool) error {
	if rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required for work mode")
	}
	if redisURL == "" {
		return fmt.Errorf("--redis-url is required for work mode")
	}

	b, err := redisbus.New(ctx, redisURL, redisChannel, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer b.Close()

	w, cleanup, err := buildWorker(ctx, logger, b, rpcEndpoint, postgresDSN, clickhouseDSN, concurrency, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Println("Starting transaction processing...")
	return w.Run(ctx)
}

// runAll runs the ingester and the worker in one process over an in-memory bus.
func runAll(ctx context.Context, logger *log.Logger, rpcEndpoint, wsEndpoint, postgresDSN, clickhouseDSN, programID string, concurrency int, useMemory bool) error {
	if rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required for all mode")
	}
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for all mode")
	}

	b := membus.New(0)
	defer b.Close()

	ws, err := solana.NewWSClient(ctx, wsEndpoint, nil, logger)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	w, cleanup, err := buildWorker(ctx, logger, b, rpcEndpoint, postgresDSN, clickhouseDSN, concurrency, useMemory)
	if err != nil {
		return err
	}
	defer cleanup()

	ing := ingester.New(ws, b, programID, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- ing.Run(runCtx) }()
	go func() { errCh <- w.Run(runCtx) }()

	logger.Println("Starting combined ingestion and processing...")

	// First failure stops both halves; the second return value is the
	// cancellation fallout and only matters when the first was clean.
	err = <-errCh
	cancel()
	second := <-errCh
	if err == nil || errors.Is(err, context.Canceled) {
		err = second
	}
	return err
}

// buildWorker wires storage, parsing and reconciliation behind a worker
// consuming from the given bus.
func buildWorker(ctx context.Context, logger *log.Logger, b bus.Bus, rpcEndpoint, postgresDSN, clickhouseDSN string, concurrency int, useMemory bool) (*worker.Worker, func(), error) {
	// Require --postgres-dsn unless --use-memory is explicitly set
	if !useMemory && postgresDSN == "" {
		return nil, nil, fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Create stores (use interfaces)
	var tokenStore storage.TokenStore = memory.NewTokenStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var holderStore storage.HolderStore = memory.NewHolderStore()
	var txRecordStore storage.TxRecordStore = memory.NewTxRecordStore()

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		cleanups = append(cleanups, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}

		tokenStore = pgstore.NewTokenStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
		holderStore = pgstore.NewHolderStore(pool)
		txRecordStore = pgstore.NewTxRecordStore(pool)
	}

	opts := []worker.Option{worker.WithConcurrency(concurrency)}

	// Price history sink is optional
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		cleanups = append(cleanups, func() { conn.Close() })
		opts = append(opts, worker.WithPricePoints(chstore.NewPricePointStore(conn)))
	}

	rpc := solana.NewHTTPClient(rpcEndpoint)
	oracle := price.NewOracle()
	p := parser.New(parser.DefaultConfig())
	rec := reconciler.New(tokenStore, tradeStore, holderStore, logger)

	w := worker.New(b, rpc, oracle, p, rec, txRecordStore, logger, opts...)
	return w, cleanup, nil
}
