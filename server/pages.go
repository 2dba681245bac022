package server

import (
	"embed"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/surveydash/dashboard"
	"github.com/spektr-org/surveydash/engine"
)

//go:embed templates/*.html
var templates embed.FS

// widgetView is a widget as the page template sees it.
type widgetView struct {
	*engine.Result
	ImageURL string
	Table    *tableView
}

// tableView lines every cell up with its column's alignment.
type tableView struct {
	Header  []cell
	Rows    [][]cell
	Summary []cell
}

type cell struct {
	Text  string
	Align string
}

type pageView struct {
	*dashboard.PageResult
	Widgets   []widgetView
	ExportURL string
}

// page renders an evaluated page as HTML. A dataset that failed to load
// is reported on the page rather than as a bare error.
func (s *Server) page(c *gin.Context) {
	pr, err := s.svc.Evaluate(c.Request.Context(), c.Param("page"))
	if pr == nil {
		c.String(statusFor(err), err.Error())
		return
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	c.HTML(status, "page.html", newPageView(pr))
}

func newPageView(pr *dashboard.PageResult) pageView {
	v := pageView{
		PageResult: pr,
		Widgets:    make([]widgetView, len(pr.Results)),
		ExportURL:  fmt.Sprintf("/api/pages/%s/export.xlsx", url.PathEscape(pr.Page.ID)),
	}
	for i, r := range pr.Results {
		w := widgetView{Result: r}
		switch {
		case r.Type == engine.ResultChart && r.ChartConfig != nil:
			w.ImageURL = fmt.Sprintf("/charts/%s/%s.png", url.PathEscape(pr.Page.ID), url.PathEscape(r.ID))
		case r.Type == engine.ResultTable && r.TableData != nil:
			w.Table = newTableView(r.TableData)
		}
		v.Widgets[i] = w
	}
	return v
}

func newTableView(t *engine.TableData) *tableView {
	tv := &tableView{Header: make([]cell, len(t.Columns))}
	for j, col := range t.Columns {
		tv.Header[j] = cell{Text: col.Label, Align: col.Align}
	}

	tv.Rows = make([][]cell, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]cell, len(t.Columns))
		for j := range cells {
			cells[j].Align = t.Columns[j].Align
			if j < len(row) {
				cells[j].Text = row[j]
			}
		}
		tv.Rows[i] = cells
	}

	if t.Summary != nil && len(t.Columns) > 0 {
		tv.Summary = make([]cell, len(t.Columns))
		for j, col := range t.Columns {
			tv.Summary[j].Align = col.Align
			if j == 0 {
				tv.Summary[j].Text = t.Summary.Label
				continue
			}
			tv.Summary[j].Text = t.Summary.Values[col.Key]
		}
	}
	return tv
}
