// Package httpapi exposes the transfer service over HTTP and serves the frontend.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Weatherlly/sr-transferencias/internal/domain"
	"github.com/Weatherlly/sr-transferencias/pkg/log"
)

// TransferService is what the handlers need from the application layer.
type TransferService interface {
	Register(ctx context.Context, rec domain.TransferRecord) (domain.TransferRecord, error)
	List(ctx context.Context) ([]domain.TransferRecord, error)
	Delete(ctx context.Context, id string) error
}

// Status is the body of GET /api/status.
type Status struct {
	State      string     `json:"state"`
	Since      time.Time  `json:"since"`
	DataDir    string     `json:"dataDir"`
	Watching   bool       `json:"watching"`
	LastChange *time.Time `json:"lastChange,omitempty"`
}

// Options tunes the HTTP layer.
type Options struct {
	// MaxBodyBytes limits POST bodies. Default: 10 MiB.
	MaxBodyBytes int64

	// RequestTimeout bounds each handler's work. Default: 5 seconds.
	RequestTimeout time.Duration

	// CORSOrigins lists allowed origins. Default: any origin.
	CORSOrigins []string

	// Static is served at / when set.
	Static fs.FS

	// Metrics exposes the Prometheus registry at /metrics.
	Metrics bool

	// Status reports service state for /api/status. Nil reports "Running".
	Status func() Status
}

// Server wires HTTP endpoints to the transfer service.
type Server struct {
	service TransferService
	logger  log.Logger
	opts    Options
}

// New creates a Server. A nil logger discards output.
func New(service TransferService, logger log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		service: service,
		logger:  logger,
		opts:    opts,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.NotFound(s.apiNotFound)
		r.MethodNotAllowed(s.apiMethodNotAllowed)

		r.Get("/status", s.status)
		r.Route("/transferencias", func(r chi.Router) {
			r.Post("/", s.createTransfer)
			r.Get("/", s.listTransfers)
			r.Delete("/{id}", s.deleteTransfer)
		})
	})

	if s.opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	if s.opts.Static != nil {
		r.Handle("/*", http.FileServer(http.FS(s.opts.Static)))
	}

	return r
}

// createTransfer decodes the form payload and registers it.
func (s *Server) createTransfer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var rec domain.TransferRecord
	if err := decodeBody(r.Body, &rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, http.StatusRequestEntityTooLarge, "Requisição muito grande", err)
			return
		}
		s.respondError(w, r, http.StatusBadRequest, "JSON inválido", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	stored, err := s.service.Register(ctx, rec)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.respondError(w, r, http.StatusBadRequest, validationMessage(err), err)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "Erro ao salvar transferência", err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{
		Success: true,
		Message: "Transferência salva com sucesso!",
		ID:      stored.ID,
	})
}

// listTransfers returns every stored record as a JSON array.
func (s *Server) listTransfers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	records, err := s.service.List(ctx)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "Erro ao ler transferências", err)
		return
	}
	if records == nil {
		records = []domain.TransferRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// deleteTransfer removes the record named in the path.
func (s *Server) deleteTransfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	if err := s.service.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(w, r, http.StatusNotFound, "Transferência não encontrada", err)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "Erro ao excluir transferência", err)
		return
	}

	writeJSON(w, http.StatusOK, resultResponse{
		Success: true,
		Message: "Transferência excluída com sucesso!",
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := Status{State: "Running"}
	if s.opts.Status != nil {
		st = s.opts.Status()
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) apiNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint não encontrado"})
}

func (s *Server) apiMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Método não permitido"})
}

type createdResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// respondError logs err and writes the uniform failure body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	fields := []log.Field{
		log.String("request_id", RequestIDFrom(r.Context())),
		log.String("path", r.URL.Path),
		log.Int("status", status),
		log.Err(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, fields...)
	} else {
		s.logger.Info(message, fields...)
	}

	writeJSON(w, status, resultResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

// errTrailingData rejects bodies holding anything after the first JSON value.
var errTrailingData = errors.New("unexpected data after JSON body")

// decodeBody decodes exactly one JSON value from body into v.
func decodeBody(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errTrailingData
	default:
		return errTrailingData
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// validationMessage turns a validation error into the text shown to users.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingOrigin):
		return "Loja de origem é obrigatória"
	case errors.Is(err, domain.ErrMissingDestination):
		return "Loja de destino é obrigatória"
	case errors.Is(err, domain.ErrSameStore):
		return "Loja de origem e destino devem ser diferentes"
	default:
		return "Dados da transferência inválidos"
	}
}
