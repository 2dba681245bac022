package server

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/surveydash/dashboard"
	"github.com/spektr-org/surveydash/export"
	"github.com/spektr-org/surveydash/render"
	"github.com/spektr-org/surveydash/stats"
)

const (
	defaultHead = 5
	maxHead     = 500

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// health responds with a simple service heartbeat.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "survey dashboard is running",
		"source":  s.svc.Source(),
	})
}

// index sends visitors to the first page.
func (s *Server) index(c *gin.Context) {
	pages := s.svc.Dashboard().Pages
	if len(pages) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "dashboard has no pages"})
		return
	}
	c.Redirect(http.StatusFound, "/pages/"+pages[0].ID)
}

// chart draws one widget as a PNG. The widget segment may carry a ".png"
// suffix.
func (s *Server) chart(c *gin.Context) {
	widgetID := strings.TrimSuffix(c.Param("widget"), ".png")
	r, err := s.svc.Widget(c.Request.Context(), c.Param("page"), widgetID)
	if err != nil {
		abort(c, err)
		return
	}
	if r.ChartConfig == nil {
		abort(c, fmt.Errorf("%w: widget %q is a %s", render.ErrNoData, widgetID, r.Type))
		return
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, r.ChartConfig, s.width, s.height); err != nil {
		log.Printf("❌ render %s/%s: %v", c.Param("page"), widgetID, err)
		abort(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// listPages returns the navigation of the dashboard.
func (s *Server) listPages(c *gin.Context) {
	d := s.svc.Dashboard()
	c.JSON(http.StatusOK, gin.H{
		"title": d.Title,
		"pages": d.Nav(""),
	})
}

// pageJSON evaluates a page. A load failure still returns the page, with
// its error set.
func (s *Server) pageJSON(c *gin.Context) {
	pr, err := s.svc.Evaluate(c.Request.Context(), c.Param("page"))
	if pr == nil {
		abort(c, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	c.JSON(status, pr)
}

// exportPage writes every widget of a page into a workbook.
func (s *Server) exportPage(c *gin.Context) {
	pr, err := s.svc.Evaluate(c.Request.Context(), c.Param("page"))
	if err != nil {
		abort(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Workbook(&buf, fmt.Sprintf("%s: %s", pr.Title, pr.Page.Title), pr.Results); err != nil {
		log.Printf("❌ export %s: %v", pr.Page.ID, err)
		abort(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pr.Page.ID+".xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// dataset previews the loaded CSV.
// Query parameters:
//   - head: number of rows to return (default 5, at most 500)
func (s *Server) dataset(c *gin.Context) {
	n := defaultHead
	if v := strings.TrimSpace(c.Query("head")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "head must be a non-negative integer"})
			return
		}
		n = min(parsed, maxHead)
	}

	ds, err := s.svc.Dataset(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dataset": dashboard.Info(ds),
		"columns": ds.Header,
		"keys":    ds.Keys,
		"head":    ds.Head(n),
	})
}

// schema returns the discovered columns with the dashboard's overrides.
func (s *Server) schema(c *gin.Context) {
	sch, err := s.svc.Schema(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, sch)
}

// describe returns per-column summary statistics.
func (s *Server) describe(c *gin.Context) {
	ds, err := s.svc.Dataset(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	summaries, err := stats.Describe(ds)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dataset": dashboard.Info(ds),
		"columns": summaries,
	})
}

// reload drops the memoized dataset; the next request fetches it again.
func (s *Server) reload(c *gin.Context) {
	s.svc.Reload()
	c.JSON(http.StatusOK, gin.H{
		"status": "reloaded",
		"source": s.svc.Source(),
	})
}
