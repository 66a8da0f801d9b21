package api

import (
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	portuc "manuscript-pipeline/internal/domain/ports/usecase"
	"manuscript-pipeline/internal/infra/metrics"
	"manuscript-pipeline/internal/usecase"
)

// Server exposes the pipeline over HTTP.
type Server struct {
	queue       usecase.QueueUseCase
	dispatcher  portuc.Dispatcher
	status      usecase.StatusUseCase
	translation usecase.TranslationUseCase
	auth        *AuthManager
	validate    *validator.Validate
	timeout     time.Duration
	log         *zerolog.Logger
}

func NewServer(
	queue usecase.QueueUseCase,
	dispatcher portuc.Dispatcher,
	status usecase.StatusUseCase,
	translation usecase.TranslationUseCase,
	auth *AuthManager,
	requestTimeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		queue:       queue,
		dispatcher:  dispatcher,
		status:      status,
		translation: translation,
		auth:        auth,
		validate:    newValidator(),
		timeout:     requestTimeout,
		log:         &l,
	}
}

// Routes builds the router with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireDispatchSecret)
			r.Get("/dispatch", s.handleDispatch)
			r.Post("/dispatch", s.handleDispatch)
		})
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireCollaborator)
			r.Post("/jobs", s.handleEnqueue)
			r.Get("/targets/{id}/status", s.handleStatus)
			r.Post("/targets/{id}/finalize", s.handleFinalize)
			r.Post("/targets/{id}/translation", s.handleTranslation)
		})
	})

	mws := []Middleware{TraceID(), RequestLog(s.log), Recover(s.log)}
	if s.timeout > 0 {
		mws = append(mws, Timeout(s.timeout))
	}
	return Chain(r, mws...)
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
