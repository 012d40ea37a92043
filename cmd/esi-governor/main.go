// Command esi-governor runs an HTTP proxy that forwards requests to the
// upstream ESI API through the compliance pipeline. All shared state
// (error budget, lockdown, cache, tokens) lives in Redis so any number of
// governor instances can run side by side.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/evetrade/esi-governor/pkg/client"
	"github.com/evetrade/esi-governor/pkg/lockdown"
	"github.com/evetrade/esi-governor/pkg/logging"
	"github.com/evetrade/esi-governor/pkg/pagination"
)

func main() {
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "esi-governor/0.1.0")
	baseURL := getEnv("ESI_BASE_URL", "https://esi.evetech.net/latest")
	logLevel := getEnv("LOG_LEVEL", "info")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})

	// All shared state is constructed here and injected; components hold
	// no lazily initialized globals.
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis")

	cfg := client.DefaultConfig(redisClient, userAgent)
	cfg.BaseURL = baseURL
	esiClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create ESI client")
	}

	paginator := pagination.New(esiClient, pagination.DefaultPageDelay)

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/esi/*", fetchHandler(esiClient))
	router.Get("/esi-pages/*", pagesHandler(paginator))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("user_agent", userAgent).
			Msg("Starting ESI governor")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop, cancelStop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelStop()
	<-stop.Done()

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	if err := esiClient.Close(); err != nil {
		logger.Error().Err(err).Msg("Client close failed")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("Redis close failed")
	}
}

// fetchHandler proxies a single upstream request through the pipeline.
// Caching is on by default; ?nocache=1 bypasses it.
func fetchHandler(esiClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := "/" + chi.URLParam(r, "*")

		params := r.URL.Query()
		useCache := params.Get("nocache") != "1"
		params.Del("nocache")

		opts := client.FetchOptions{UseCache: useCache}
		if auth := r.Header.Get("Authorization"); len(auth) > 7 {
			opts.Token = auth[7:] // strip "Bearer "
		}

		body, err := esiClient.Fetch(r.Context(), endpoint, params, opts)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

// pagesHandler fetches every page of a paginated endpoint and returns the
// concatenated records as one JSON array.
func pagesHandler(paginator *pagination.Paginator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := "/" + chi.URLParam(r, "*")

		records, err := paginator.FetchAll(r.Context(), endpoint, r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("["))
		for i, record := range records {
			if i > 0 {
				w.Write([]byte(","))
			}
			w.Write(record)
		}
		w.Write([]byte("]"))
	}
}

// writeError translates pipeline errors into HTTP responses. Compliance
// rejections become 503 with a Retry-After hint; upstream statuses pass
// through; transport failures become 502.
func writeError(w http.ResponseWriter, err error) {
	var lockedErr *lockdown.LockedError
	if errors.As(err, &lockedErr) {
		w.Header().Set("Retry-After", strconv.Itoa(int(lockedErr.RetryAfter.Seconds())))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var budgetErr *client.BudgetExhaustedError
	if errors.As(err, &budgetErr) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var statusErr *client.UpstreamStatusError
	if errors.As(err, &statusErr) {
		http.Error(w, err.Error(), statusErr.StatusCode)
		return
	}

	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
