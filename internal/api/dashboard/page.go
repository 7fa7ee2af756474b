package dashboard

import (
	"bytes"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/templates"
)

// Title is the dashboard heading.
const Title = "Visualización de datos sobre la red vial de Costa Rica"

// Sources names the WFS layers the dashboard reads.
var Sources = []string{
	"Límite cantonal 1:5000",
	"Red vial 1:200000",
}

// PageData fills the "page" template.
type PageData struct {
	Title       string
	Sources     []string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	FillOpacity float64
}

// DefaultPageData returns the page centered on Costa Rica.
func DefaultPageData() PageData {
	return PageData{
		Title:       Title,
		Sources:     Sources,
		CenterLat:   report.MapCenterLat,
		CenterLon:   report.MapCenterLon,
		Zoom:        report.MapZoom,
		FillOpacity: report.FillOpacity,
	}
}

// Page serves the dashboard page at "/".
type Page struct {
	renderer *templates.Renderer
	data     PageData
	log      logrus.FieldLogger
}

// NewPage creates the page handler.
func NewPage(renderer *templates.Renderer, log logrus.FieldLogger) *Page {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Page{renderer: renderer, data: DefaultPageData(), log: log}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := p.renderer.RenderToBuffer(&buf, "page", p.data); err != nil {
		p.log.WithError(err).Error("failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
