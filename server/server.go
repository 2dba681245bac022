// Package server is the web front end of the survey dashboard: HTML pages,
// PNG charts and a JSON API over the same evaluated widgets.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/surveydash/dashboard"
	"github.com/spektr-org/surveydash/loader"
	"github.com/spektr-org/surveydash/render"
)

// ============================================================================
// SERVER — gin router over a dashboard.Service
// ============================================================================
//
//   GET  /health
//   GET  /                               → redirect to the first page
//   GET  /pages/:page                    HTML page
//   GET  /charts/:page/:widget.png       PNG chart
//   GET  /api/pages                      navigation
//   GET  /api/pages/:page                evaluated widgets as JSON
//   GET  /api/pages/:page/export.xlsx    spreadsheet of a page
//   GET  /api/dataset?head=N             source, encoding, columns, first rows
//   GET  /api/schema                     discovered columns
//   GET  /api/describe                   per-column statistics
//   POST /api/reload                     drop the memoized dataset
// ============================================================================

const shutdownTimeout = 5 * time.Second

// Server serves one dashboard.
type Server struct {
	svc    *dashboard.Service
	width  int
	height int
}

// New returns a Server for svc drawing charts at the default size.
func New(svc *dashboard.Service) *Server {
	return &Server{svc: svc, width: render.DefaultWidth, height: render.DefaultHeight}
}

// Routes builds the gin router.
func (s *Server) Routes() http.Handler {
	router := gin.New()
	router.Use(RequestID(), gin.LoggerWithFormatter(logFormat), gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	router.GET("/health", s.health)
	router.GET("/", s.index)
	router.GET("/pages/:page", s.page)
	router.GET("/charts/:page/:widget", s.chart)

	api := router.Group("/api")
	{
		api.GET("/pages", s.listPages)
		api.GET("/pages/:page", s.pageJSON)
		api.GET("/pages/:page/export.xlsx", s.exportPage)
		api.GET("/dataset", s.dataset)
		api.GET("/schema", s.schema)
		api.GET("/describe", s.describe)
		api.POST("/reload", s.reload)
	}

	return router
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Println("server exiting")
	return nil
}

// statusFor maps package sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrPageNotFound), errors.Is(err, dashboard.ErrWidgetNotFound):
		return http.StatusNotFound
	case errors.Is(err, loader.ErrFetch), errors.Is(err, loader.ErrEmpty):
		return http.StatusBadGateway
	case errors.Is(err, render.ErrNoData), errors.Is(err, render.ErrUnsupported):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
}
