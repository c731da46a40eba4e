// Package handler exposes the engine's read-only operational HTTP
// surface. All trading traffic goes through the Kafka ingress; this
// server only answers health and status probes.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evanreis/predictex/internal/dispatch"
)

// NewRouter creates a chi router with the health and status routes
// registered and request logging.
func NewRouter(disp *dispatch.Dispatcher, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, disp.Stats())
	})

	r.Get("/orderbook/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		symbol := chi.URLParam(r, "symbol")
		resp, _, err := disp.Dispatch(dispatch.Command{
			Type: dispatch.CmdGetOrderbookBySymbol,
			Data: dispatch.CommandData{StockSymbol: symbol},
		})
		if err != nil {
			// The command kind is fixed here, so this cannot be the
			// unsupported-kind path; surface it as a server error anyway.
			WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if resp.StatusType == dispatch.StatusError {
			WriteError(w, resp.StatusCode, resp.StatusMessage, "orderbook unavailable for "+symbol)
			return
		}
		WriteJSON(w, resp.StatusCode, resp.Data)
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
