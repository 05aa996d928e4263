// Package main provides the unified liquidator server:
// - Pair factory and swap router behind an HTTP API
// - WebSocket feed of executed trades and rate samples
// - Background rate sampler writing the analytics timeseries
// - Reserve accrual ticker feeding the in-memory liquidity source
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/GenerationSoftware/pt-v5-liquidator/internal/auction"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/domain"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/factory"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/feed"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/fixedpoint"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/observability"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/router"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/source"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage"
	chstore "github.com/GenerationSoftware/pt-v5-liquidator/internal/storage/clickhouse"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage/memory"
	"github.com/GenerationSoftware/pt-v5-liquidator/internal/storage/migrations"
	pgstore "github.com/GenerationSoftware/pt-v5-liquidator/internal/storage/postgres"
)

// Server holds all components of the liquidator service.
type Server struct {
	src     *source.Memory
	factory *factory.Factory
	router  *router.Router
	feed    *feed.Broadcaster
	stores  *allStores
	logger  *log.Logger

	sampleInterval time.Duration
	accrueInterval time.Duration
	accrueAmount   fixedpoint.SD

	mu        sync.Mutex
	startedAt time.Time
	samples   int
}

// allStores holds all storage implementations.
type allStores struct {
	pairStore storage.PairStore
	tradeStore storage.TradeStore
	rateStore storage.RateTimeseriesStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	sampleInterval := flag.Duration("sample-interval", 15*time.Second, "Rate sampler interval")
	accrueInterval := flag.Duration("accrue-interval", 1*time.Minute, "Reserve accrual interval")
	accrueAmount := flag.String("accrue-amount", "0", "Output token amount accrued to each pair's reserve per tick")

	flag.Parse()

	logger := log.New(os.Stdout, "[liquidator] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	accrual, err := fixedpoint.FromString(*accrueAmount)
	if err != nil {
		logger.Fatalf("Invalid --accrue-amount: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	src := source.NewMemory()
	broadcaster := feed.NewBroadcaster(logger)
	fac := factory.New(src,
		factory.WithPairStore(stores.pairStore),
		factory.WithLogger(logger),
	)
	rtr := router.New(fac,
		router.WithTradeStore(stores.tradeStore),
		router.WithFeed(broadcaster),
		router.WithLogger(logger),
	)

	server := &Server{
		src:            src,
		factory:        fac,
		router:         rtr,
		feed:           broadcaster,
		stores:         stores,
		logger:         logger,
		sampleInterval: *sampleInterval,
		accrueInterval: *accrueInterval,
		accrueAmount:   accrual,
		startedAt:      time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.routes(),
	}

	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
		broadcaster.Close()

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

	// Background loops
	go server.runSampler(ctx)
	go server.runAccrual(ctx)
	go server.runUptime(ctx)

	logger.Printf("Starting HTTP server on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	close(done)
	logger.Println("Shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			pairStore:  memory.NewPairStore(),
			tradeStore: memory.NewTradeStore(),
			rateStore:  memory.NewRateTimeseriesStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse (migrations return the connection to the target database)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	stores := &allStores{
		pairStore:  pgstore.NewPairStore(pool),
		tradeStore: pgstore.NewTradeStore(pool),
		rateStore:  chstore.NewRateTimeseriesStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("GET /pairs", s.handleListPairs)
	mux.HandleFunc("POST /pairs", s.handleCreatePair)
	mux.HandleFunc("GET /pairs/{id}/state", s.handlePairState)
	mux.HandleFunc("GET /pairs/{id}/quote", s.handleQuote)
	mux.HandleFunc("POST /pairs/{id}/swap", s.handleSwap)
	mux.HandleFunc("GET /pairs/{id}/trades", s.handleTrades)

	mux.HandleFunc("POST /source/credit", s.handleCredit)
	mux.HandleFunc("POST /source/accrue", s.handleAccrue)
	mux.HandleFunc("POST /source/target", s.handleSetTarget)

	mux.HandleFunc("GET /ws", s.feed.Handler())

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Pairs       int    `json:"pairs"`
	FeedClients int    `json:"feed_clients"`
	Samples     int    `json:"samples"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	samples := s.samples
	started := s.startedAt
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "running",
		Uptime:      time.Since(started).String(),
		Pairs:       s.factory.TotalPairs(),
		FeedClients: s.feed.ClientCount(),
		Samples:     samples,
	})
}

// CreatePairRequest is the JSON body of POST /pairs. Rates and percents are
// fixed-point decimal strings.
type CreatePairRequest struct {
	TokenIn                 string `json:"token_in"`
	TokenOut                string `json:"token_out"`
	PeriodLength            int64  `json:"period_length"`
	PeriodOffset            int64  `json:"period_offset"`
	TargetRate              string `json:"target_rate"`
	PhaseTwoDurationPercent string `json:"phase_two_duration_percent"`
	PhaseTwoRangePercent    string `json:"phase_two_range_percent"`
}

func (s *Server) handleCreatePair(w http.ResponseWriter, r *http.Request) {
	var req CreatePairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	target, err := fixedpoint.FromString(req.TargetRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("target_rate: %w", err))
		return
	}
	duration, err := fixedpoint.FromString(req.PhaseTwoDurationPercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("phase_two_duration_percent: %w", err))
		return
	}
	rng, err := fixedpoint.FromString(req.PhaseTwoRangePercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("phase_two_range_percent: %w", err))
		return
	}

	info, err := s.factory.CreatePair(r.Context(), auction.Config{
		TokenIn:                 req.TokenIn,
		TokenOut:                req.TokenOut,
		PeriodLength:            req.PeriodLength,
		PeriodOffset:            req.PeriodOffset,
		TargetExchangeRate:      target,
		PhaseTwoDurationPercent: duration,
		PhaseTwoRangePercent:    rng,
	}, auction.WithLogger(s.logger))
	if err != nil {
		if errors.Is(err, factory.ErrPairExists) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.factory.ListPairs())
}

// PairStateResponse is the JSON rendering of an auction snapshot.
type PairStateResponse struct {
	PairID           string `json:"pair_id"`
	TokenIn          string `json:"token_in"`
	TokenOut         string `json:"token_out"`
	Timestamp        int64  `json:"timestamp"`
	Period           int64  `json:"period"`
	PercentCompleted string `json:"percent_completed"`
	Phase            int    `json:"phase"`
	Rate             string `json:"rate"`
	TargetRate       string `json:"target_rate"`
	NextTargetRate   string `json:"next_target_rate"`
	MaxAmountOut     string `json:"max_amount_out"`
}

func (s *Server) handlePairState(w http.ResponseWriter, r *http.Request) {
	pairID := r.PathValue("id")

	snap, err := s.router.State(pairID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, PairStateResponse{
		PairID:           pairID,
		TokenIn:          snap.TokenIn,
		TokenOut:         snap.TokenOut,
		Timestamp:        snap.Timestamp,
		Period:           snap.Period,
		PercentCompleted: snap.PercentCompleted.String(),
		Phase:            snap.Phase,
		Rate:             snap.Rate.String(),
		TargetRate:       snap.TargetRate.String(),
		NextTargetRate:   snap.NextTargetRate.String(),
		MaxAmountOut:     snap.MaxAmountOut.String(),
	})
}

// QuoteResponse is the JSON response of GET /pairs/{id}/quote.
type QuoteResponse struct {
	PairID string `json:"pair_id"`
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
	Quote  string `json:"quote"`
}

// handleQuote quotes ?kind=exact_in&amount=... (amount is the fixed input,
// the quote is the output) or kind=exact_out (amount is the fixed output,
// the quote is the input cost).
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	pairID := r.PathValue("id")
	kind := r.URL.Query().Get("kind")

	amount, err := fixedpoint.FromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("amount: %w", err))
		return
	}

	var quote fixedpoint.SD
	switch kind {
	case domain.TradeKindExactIn:
		quote, err = s.router.QuoteExactAmountOut(r.Context(), pairID, amount)
	case domain.TradeKindExactOut:
		quote, err = s.router.QuoteExactAmountIn(r.Context(), pairID, amount)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("kind must be %q or %q", domain.TradeKindExactIn, domain.TradeKindExactOut))
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		PairID: pairID,
		Kind:   kind,
		Amount: amount.String(),
		Quote:  quote.String(),
	})
}

// SwapRequest is the JSON body of POST /pairs/{id}/swap. For exact_in, limit
// is the minimum acceptable output; for exact_out, the maximum acceptable
// input.
type SwapRequest struct {
	Account string `json:"account"`
	Kind    string `json:"kind"`
	Amount  string `json:"amount"`
	Limit   string `json:"limit"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	pairID := r.PathValue("id")

	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, errors.New("account is required"))
		return
	}

	amount, err := fixedpoint.FromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("amount: %w", err))
		return
	}
	limit, err := fixedpoint.FromString(req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %w", err))
		return
	}

	var trade *domain.LiquidationTrade
	switch req.Kind {
	case domain.TradeKindExactIn:
		trade, err = s.router.SwapExactAmountIn(r.Context(), pairID, req.Account, amount, limit)
	case domain.TradeKindExactOut:
		trade, err = s.router.SwapExactAmountOut(r.Context(), pairID, req.Account, amount, limit)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("kind must be %q or %q", domain.TradeKindExactIn, domain.TradeKindExactOut))
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	pairID := r.PathValue("id")

	if _, err := s.factory.GetInfo(pairID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	start := time.Now()
	trades, err := s.stores.tradeStore.GetByPairID(r.Context(), pairID)
	observability.RecordDBQuery("postgres", "get_trades", time.Since(start).Seconds(), err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, trades)
}

// BalanceRequest is the JSON body of the /source admin endpoints.
type BalanceRequest struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	amount, err := fixedpoint.FromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("amount: %w", err))
		return
	}
	if err := s.src.Credit(req.Token, req.Account, amount); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccrue(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	amount, err := fixedpoint.FromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("amount: %w", err))
		return
	}
	if err := s.src.Accrue(req.Token, amount); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Token == "" || req.Account == "" {
		writeError(w, http.StatusBadRequest, errors.New("token and account are required"))
		return
	}
	s.src.SetTarget(req.Token, req.Account)
	w.WriteHeader(http.StatusNoContent)
}

// runSampler periodically samples every pair's committed state into the
// rate timeseries and the feed.
func (s *Server) runSampler(ctx context.Context) {
	s.logger.Printf("Starting rate sampler (interval: %v)...", s.sampleInterval)

	ticker := time.NewTicker(s.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

func (s *Server) sampleOnce(ctx context.Context) {
	var points []*domain.RatePoint
	nowMs := time.Now().UnixMilli()

	s.factory.EachPair(func(pairID string, pair *auction.Pair) {
		snap := pair.Snapshot()
		points = append(points, &domain.RatePoint{
			PairID:           pairID,
			TimestampMs:      nowMs,
			Period:           snap.Period,
			Phase:            snap.Phase,
			PercentCompleted: snap.PercentCompleted.Float64(),
			Rate:             snap.Rate.Float64(),
			TargetRate:       snap.TargetRate.Float64(),
			MaxAmountOut:     snap.MaxAmountOut.Float64(),
		})
		observability.UpdateAuctionState(pairID, snap.Period, snap.Phase,
			snap.TargetRate.Float64(), snap.MaxAmountOut.Float64())
	})

	if len(points) == 0 {
		return
	}

	start := time.Now()
	err := s.stores.rateStore.InsertBulk(ctx, points)
	observability.RecordDBQuery("clickhouse", "insert_samples", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Printf("Rate sample write failed: %v", err)
		return
	}

	for _, p := range points {
		s.feed.BroadcastSample(p)
	}

	observability.DefaultMetrics.LastSuccessfulSample.Set(float64(time.Now().Unix()))
	s.mu.Lock()
	s.samples++
	s.mu.Unlock()
}

// runAccrual periodically accrues liquidity to each pair's output token
// reserve so continuously running auctions have something to sell.
func (s *Server) runAccrual(ctx context.Context) {
	if s.accrueAmount.Sign() <= 0 {
		return
	}
	s.logger.Printf("Starting reserve accrual (interval: %v, amount: %s)...", s.accrueInterval, s.accrueAmount)

	ticker := time.NewTicker(s.accrueInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tokens := make(map[string]struct{})
			s.factory.EachPair(func(_ string, pair *auction.Pair) {
				tokens[pair.Config().TokenOut] = struct{}{}
			})
			for token := range tokens {
				if err := s.src.Accrue(token, s.accrueAmount); err != nil {
					s.logger.Printf("Accrual failed for %s: %v", token, err)
				}
			}
		}
	}
}

func (s *Server) runUptime(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.DefaultMetrics.UptimeSeconds.Inc()
		}
	}
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, factory.ErrUnknownPair):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrMinAmountOut),
		errors.Is(err, auction.ErrMaxAmountIn),
		errors.Is(err, source.ErrInsufficientLiquidity),
		errors.Is(err, source.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, source.ErrUnknownToken),
		errors.Is(err, source.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
