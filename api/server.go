package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/app"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/validation"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	router     *gin.Engine
	httpServer *http.Server
	app        *app.App
	validator  *validation.Validator
	logger     logger.Logger
}

// Run serves the loopback bridge for a until ctx is cancelled or the process is interrupted,
// then shuts the server down and closes the app.
func Run(ctx context.Context, a *app.App) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	defer cancel()

	s := &server{
		app:    a,
		logger: a.Logger,
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	s.setupRouter()
	s.setupHTTPServer()

	a.StartScheduler(ctx)

	return s.serveUntilDone(ctx)
}

func (s *server) setupDependencies() error {
	var err error
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	return nil

}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))

	setupRoutes(router, s.app, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(s.app.Config.GetHost(), s.app.Config.GetPort()),
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *server) serveUntilDone(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			s.logger.Error("http server failed", "err", err.Error())
			return errors.Join(err, s.app.Close())
		}
	case <-ctx.Done():
	}

	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err.Error())
		errs = append(errs, err)
	}
	if err := s.app.Close(); err != nil {
		s.logger.Error("error closing stores", "err", err.Error())
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		s.logger.Info("shut down http server successfully")
	}
	return errors.Join(errs...)
}
