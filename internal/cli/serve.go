package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/capgen/capgen/pkg/buildinfo"
	"github.com/capgen/capgen/pkg/config"
	cerrors "github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/pipeline"
)

const (
	defaultServeAddr = ":8080"

	// maxRequestBody bounds the JSON request size. Sources are referenced
	// by path or URL, never inlined, so requests stay small.
	maxRequestBody = 1 << 20

	serveShutdownTimeout = 10 * time.Second
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		configPath string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the captioning HTTP server",
		Long: `Run an HTTP server exposing the captioning pipeline.

Endpoints:
  POST /caption   Caption an image. The JSON body mirrors the caption
                  command's flags (source, top_text, bottom_text, bold,
                  italic, colors, format, budget, ...). Responds with the
                  captioned image bytes.
  GET  /healthz   Liveness check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			if addr == "" {
				addr = defaultServeAddr
			}
			runner, err := c.newRunner(cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			return c.runServer(cmd.Context(), addr, runner)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":8080\", or serve.addr from config)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable source and result caching")

	return cmd
}

// runServer serves until ctx is canceled, then shuts down gracefully.
func (c *CLI) runServer(ctx context.Context, addr string, runner *pipeline.Runner) error {
	s := &server{runner: runner, cli: c}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// server holds the HTTP handler state.
type server struct {
	runner *pipeline.Runner
	cli    *CLI
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/caption", s.handleCaption)
	return r
}

// requestLogger assigns a request ID, attaches a scoped logger to the
// request context, and logs each request on completion.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		logger := s.cli.Logger.With("request_id", id)
		ctx := withLogger(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *server) handleCaption(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	opts.Logger = loggerFromContext(r.Context())

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, statusForError(err), string(cerrors.GetCode(err)), cerrors.UserMessage(err))
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(result.Extension))
	w.Header().Set("Content-Length", fmt.Sprint(len(result.Data)))
	w.Header().Set("X-Cache", cacheHeader(result.CacheInfo.ResultHit))
	w.Header().Set("X-Frames", fmt.Sprint(result.Frames))
	if opts.Budget > 0 {
		w.Header().Set("X-Budget-Met", fmt.Sprint(result.BudgetMet))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

// statusForError maps pipeline error codes to HTTP status codes.
func statusForError(err error) int {
	if errors.Is(err, context.Canceled) {
		return 499 // client closed request
	}
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidColor,
		cerrors.ErrCodeInvalidFormat, cerrors.ErrCodeInvalidBudget,
		cerrors.ErrCodeInvalidPath, cerrors.ErrCodeLayout:
		return http.StatusBadRequest
	case cerrors.ErrCodeNotFound, cerrors.ErrCodeFileNotFound, cerrors.ErrCodeFontNotFound:
		return http.StatusNotFound
	case cerrors.ErrCodeRetrieval, cerrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case cerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case cerrors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func contentTypeFor(extension string) string {
	switch extension {
	case "gif":
		return "image/gif"
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}
