// Package httpapi serves converter commands over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	docconv "github.com/alnah/go-docconv"
	"github.com/alnah/go-docconv/internal/dispatch"
)

// DefaultMaxBodyBytes bounds a command request body. Inline content
// conversions are the largest requests.
const DefaultMaxBodyBytes = 32 << 20

const shutdownTimeout = 10 * time.Second

// Options configures the handler.
type Options struct {
	MaxBodyBytes int64 // DefaultMaxBodyBytes when zero
	Logger       *slog.Logger
}

type api struct {
	d       *dispatch.Dispatcher
	logger  *slog.Logger
	maxBody int64
}

// NewHandler returns the HTTP API:
//
//	POST /v1/commands/{name}  run a command; the body is its JSON parameters
//	GET  /v1/formats          supported formats
//	GET  /healthz             liveness
func NewHandler(d *dispatch.Dispatcher, opts Options) http.Handler {
	a := &api{d: d, logger: opts.Logger, maxBody: opts.MaxBodyBytes}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.maxBody <= 0 {
		a.maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/formats", a.formats)
		r.Post("/commands/{name}", a.command)
	})
	return r
}

func (a *api) command(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !slices.Contains(a.d.Commands(), name) {
		writeEnvelope(w, http.StatusNotFound, dispatch.Failure(&docconv.Error{
			Kind:    docconv.KindInvalidOptionValue,
			Message: fmt.Sprintf("unknown command %q", name),
		}))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			err = fmt.Errorf("request body exceeds %d bytes", a.maxBody)
		}
		writeEnvelope(w, status, dispatch.Failure(&docconv.Error{
			Kind:    docconv.KindInvalidOptionValue,
			Message: err.Error(),
		}))
		return
	}

	resp := a.d.Dispatch(r.Context(), dispatch.Command{Name: name, Params: json.RawMessage(body)})
	writeEnvelope(w, statusFor(resp), resp)
}

func (a *api) formats(w http.ResponseWriter, r *http.Request) {
	resp := a.d.Dispatch(r.Context(), dispatch.Command{Name: dispatch.CmdGetSupportedFormats})
	writeEnvelope(w, statusFor(resp), resp)
}

// statusFor maps an envelope to an HTTP status.
func statusFor(resp dispatch.Response) int {
	if resp.OK() {
		return http.StatusOK
	}
	switch resp.Kind {
	case docconv.KindSourceNotFound:
		return http.StatusNotFound
	case docconv.KindSourceTooLarge:
		return http.StatusRequestEntityTooLarge
	case docconv.KindSourceUnreadable, docconv.KindFormatUnrecognized,
		docconv.KindUnsupportedConversion, docconv.KindInvalidOptionValue:
		return http.StatusUnprocessableEntity
	case docconv.KindSourceFetchFailed:
		return http.StatusBadGateway
	case docconv.KindEngineNotFound:
		return http.StatusServiceUnavailable
	case docconv.KindConversionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, status int, resp dispatch.Response) {
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs one line per request through the handler's slog logger.
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			a.logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
