// Package server exposes stored detection results over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hamsci/lstid-detect/internal/log"
	"github.com/hamsci/lstid-detect/internal/storage"
	"github.com/hamsci/lstid-detect/pkg/resultformat"
)

// Server serves the results API.
type Server struct {
	Server    http.Server
	reader    storage.Reader
	formatter *resultformat.Formatter
	logger    *zap.SugaredLogger
	wg        sync.WaitGroup
}

// New builds a server reading from reader and listening on addr.
func New(addr string, reader storage.Reader, logger *zap.SugaredLogger) *Server {
	s := &Server{
		reader:    reader,
		formatter: resultformat.NewFormatter(false),
		logger:    logger,
	}
	s.Server.Addr = addr
	s.Server.Handler = s.Router()
	s.Server.ReadHeaderTimeout = 10 * time.Second
	return s
}

// Router returns the request router.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware(s.logger))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	api.HandleFunc("/results/{date}", s.getResult).Methods(http.MethodGet)
	return router
}

// Start serves in the background until ctx is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) {
	s.logger.Infow("starting results server", "addr", s.Server.Addr)
	ctx, cancel := context.WithCancel(ctx)
	s.wg.Add(2)

	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.Server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("results server error", "error", err)
		}
	}()

	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		s.logger.Info("shutting down the results server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Server.Shutdown(shutdownCtx)
	}()
}

// Wait blocks until the server has shut down.
func (s *Server) Wait() {
	s.wg.Wait()
}
