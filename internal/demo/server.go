package demo

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/go-scripts/sitebot/internal/types"
	"github.com/go-scripts/sitebot/internal/writer"
)

// NewRouter serves the workspaces under root:
//
//	GET /health
//	GET /api/companies
//	GET /api/companies/:company/analysis
//	GET /demo/:company
//	GET /files/...
func NewRouter(root string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/companies", listCompanies(root))
		api.GET("/companies/:company/analysis", getAnalysis(root))
	}

	router.GET("/demo/:company", getDemo(root))
	router.StaticFS("/files", gin.Dir(root, false))

	return router
}

// Serve runs the router on addr until ctx is cancelled
func Serve(ctx context.Context, addr, root string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(root),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Serving analysis", "addr", addr, "root", root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func listCompanies(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := os.ReadDir(root)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workspaces"})
			return
		}

		companies := []string{}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(root, e.Name(), writer.AnalysisFile)); err == nil {
				companies = append(companies, e.Name())
			}
		}
		sort.Strings(companies)
		c.JSON(http.StatusOK, gin.H{"companies": companies})
	}
}

func getAnalysis(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws := types.Workspace{Root: root, Company: writer.CompanyName(c.Param("company"))}

		result, err := writer.ReadAnalysis(ws)
		switch {
		case errors.Is(err, writer.ErrNoAnalysis):
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		case err != nil:
			log.Error("Failed to read analysis", "company", ws.Company, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read analysis"})
		default:
			c.JSON(http.StatusOK, result)
		}
	}
}

func getDemo(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws := types.Workspace{Root: root, Company: writer.CompanyName(c.Param("company"))}
		if ws.Company == "" {
			c.String(http.StatusNotFound, "demo not found")
			return
		}
		path := filepath.Join(ws.Dir(), writer.DemoFile)
		if _, err := os.Stat(path); err != nil {
			c.String(http.StatusNotFound, "demo not found")
			return
		}
		c.File(path)
	}
}
