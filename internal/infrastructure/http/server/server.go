package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	glosashandler "3tcapital/goglosas/internal/adapters/http/glosas"
	healthhandler "3tcapital/goglosas/internal/adapters/http/health"
	homologacionhandler "3tcapital/goglosas/internal/adapters/http/homologacion"
	"3tcapital/goglosas/internal/infrastructure/config"
	"3tcapital/goglosas/internal/infrastructure/http/middleware"
)

// Handlers groups the HTTP adapters the server exposes.
type Handlers struct {
	Health       *healthhandler.Handler
	Glosas       *glosashandler.Handler
	Homologacion *homologacionhandler.Handler
}

// Options carries the server dependencies.
type Options struct {
	Config   config.AppConfig
	Logger   *slog.Logger
	Handlers Handlers
}

// Server owns the HTTP listener and the route table.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	auth       *middleware.JWTAuthenticator
	shutdown   config.HTTPSettings
}

// New builds the router and wires middleware and handlers.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Handlers.Health == nil || opts.Handlers.Glosas == nil || opts.Handlers.Homologacion == nil {
		return nil, errors.New("all handlers are required")
	}

	auth, err := middleware.NewJWTAuthenticator(opts.Config.Auth, opts.Logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(auth.Middleware)

	r.Get("/health", opts.Handlers.Health.Status)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/glosas", func(r chi.Router) {
			// Runs parse hundreds of workbooks; give them the extended timeout.
			r.With(middleware.ExtendedTimeout(opts.Config.HTTP)).Post("/runs", opts.Handlers.Glosas.Run)
			r.Get("/runs/{eps}", opts.Handlers.Glosas.History)
		})
		r.Route("/homologacion/{eps}", func(r chi.Router) {
			r.Get("/", opts.Handlers.Homologacion.GetTable)
			r.Post("/codigos", opts.Handlers.Homologacion.CreateRow)
			r.Put("/codigos/{codigo}", opts.Handlers.Homologacion.UpdateRow)
			r.Delete("/codigos/{codigo}", opts.Handlers.Homologacion.DeleteRow)
			r.Post("/resolver", opts.Handlers.Homologacion.Resolve)
		})
	})

	srv := &http.Server{
		Addr:         opts.Config.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  opts.Config.HTTP.ReadTimeout,
		WriteTimeout: opts.Config.HTTP.WriteTimeout,
		IdleTimeout:  opts.Config.HTTP.IdleTimeout,
	}

	return &Server{
		log:        opts.Logger,
		httpServer: srv,
		auth:       auth,
		shutdown:   opts.Config.HTTP,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the listener until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Close stops background resources.
func (s *Server) Close() {
	if s.auth != nil {
		s.auth.Close()
	}
}
