package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-seqprep/internal/config"
	"github.com/example/go-seqprep/internal/encode"
	"github.com/example/go-seqprep/internal/vocab"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// maxBodyBytes caps request bodies independently of the token limit.
const maxBodyBytes = 1 << 20

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTokens int
	logger    *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTokens: 512,
		logger:    slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTokens sets the maximum number of tokens accepted by POST /encode.
// Zero disables the limit.
func WithMaxTokens(n int) Option {
	return func(o *options) { o.maxTokens = n }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	backend Backend
	opts    options
	log     *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /vocab,
// POST /encode and /embedding.
func NewHandler(backend Backend, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		backend: backend,
		opts:    opts,
		log:     opts.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/vocab", h.handleVocab)
	mux.HandleFunc("/encode", h.handleEncode)
	mux.HandleFunc("/embedding", h.handleEmbedding)

	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleVocab(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, h.backend.Info())
}

type encodeRequest struct {
	Tokens []string `json:"tokens"`
	Tags   []string `json:"tags,omitempty"`
}

type encodeResponse struct {
	WordIDs []int `json:"word_ids"`
	TagIDs  []int `json:"tag_ids,omitempty"`
}

type unknownItemResponse struct {
	Error    string `json:"error"`
	Axis     string `json:"axis"`
	Item     string `json:"item"`
	Position int    `json:"position"`
}

func (h *handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req encodeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())

		return
	}

	if len(req.Tokens) == 0 {
		writeError(w, http.StatusBadRequest, "tokens field is required")
		return
	}

	if h.opts.maxTokens > 0 && len(req.Tokens) > h.opts.maxTokens {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request has %d tokens, maximum is %d", len(req.Tokens), h.opts.maxTokens))
		return
	}

	if req.Tags != nil && len(req.Tags) != len(req.Tokens) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("got %d tokens and %d tags", len(req.Tokens), len(req.Tags)))
		return
	}

	start := time.Now()

	var (
		resp encodeResponse
		err  error
	)

	if req.Tags == nil {
		resp.WordIDs, err = h.backend.EncodeWords(req.Tokens)
	} else {
		var seq encode.Sequence

		seq, err = h.backend.EncodePairs(req.Tokens, req.Tags)
		resp.WordIDs, resp.TagIDs = seq.Words, seq.Tags
	}

	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		var encErr *encode.Error
		if errors.As(err, &encErr) {
			h.log.InfoContext(r.Context(), "encode rejected unknown item",
				slog.String("axis", string(encErr.Axis)),
				slog.String("item", encErr.Err.Item),
				slog.Int("tokens", len(req.Tokens)),
			)
			writeJSON(w, http.StatusUnprocessableEntity, unknownItemResponse{
				Error:    err.Error(),
				Axis:     string(encErr.Axis),
				Item:     encErr.Err.Item,
				Position: encErr.Err.Position,
			})

			return
		}

		h.log.ErrorContext(r.Context(), "encode failed",
			slog.Int("tokens", len(req.Tokens)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	h.log.InfoContext(r.Context(), "encode complete",
		slog.Int("tokens", len(req.Tokens)),
		slog.Bool("tags", req.Tags != nil),
		slog.Int64("duration_ms", durationMS),
	)

	writeJSON(w, http.StatusOK, resp)
}

type embeddingResponse struct {
	Word   string    `json:"word"`
	ID     int       `json:"id"`
	Vector []float32 `json:"vector"`
}

func (h *handler) handleEmbedding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	word := r.URL.Query().Get("word")
	if word == "" {
		writeError(w, http.StatusBadRequest, "word query parameter is required")
		return
	}

	id, vec, err := h.backend.Embedding(word)

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, embeddingResponse{Word: word, ID: id, Vector: vec})
	case errors.Is(err, vocab.ErrKeyNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("word %q is not in the vocabulary", word))
	case errors.Is(err, ErrNoMatrix):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "embedding lookup failed",
			slog.String("word", word),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server: wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	backend         Backend
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.Config, backend Backend) *Server {
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Server{
		cfg:             cfg,
		backend:         backend,
		logger:          slog.Default(),
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger sets the logger passed to the handler.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) Start(ctx context.Context) error {
	if s.backend == nil {
		return errors.New("server: no dataset loaded")
	}

	h := NewHandler(s.backend,
		WithMaxTokens(s.cfg.Server.MaxTokens),
		WithLogger(s.logger),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("http server listening", slog.String("addr", s.cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}

	return nil
}
