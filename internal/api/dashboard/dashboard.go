// Package dashboard contains the Datastar SSE handlers and the page of the
// road network dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/humastar"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/service"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/session"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

// SelectLabel labels the category selector.
const SelectLabel = "Seleccione la categoría de la red vial"

// Handler streams dashboard fragments and signals.
type Handler struct {
	humastar.Handler
	dash *service.Dashboard
	log  logrus.FieldLogger
}

// New creates a dashboard handler.
func New(dash *service.Dashboard, renderer *humastar.Renderer, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		dash:    dash,
		log:     log,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/dashboard/categories", h.Categories, huma.OperationTags("dashboard"))
	huma.Post(api, "/api/v1/dashboard/render", h.View, huma.OperationTags("dashboard"))
	huma.Get(api, "/api/v1/dashboard/events", h.Events, huma.OperationTags("dashboard"))
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	var fe *wfs.FetchError
	switch {
	case errors.As(err, &fe):
		return "No se pudieron obtener las capas WFS del SNIT. Intente de nuevo más tarde."
	case errors.Is(err, layers.ErrNoCategories):
		return "No hay categorías de red vial disponibles."
	case errors.Is(err, aggregate.ErrUnknownCategory):
		return "La categoría seleccionada no existe."
	case errors.Is(err, session.ErrSessionRequired):
		return "La sesión no es válida. Recargue la página."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "La solicitud fue cancelada."
	}
	return "Error inesperado: " + err.Error()
}

// Categories loads the session's dataset, reporting progress, and patches
// the category selector followed by the view of the selected category.
func (h *Handler) Categories(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		p := &progress{sse: sse}
		defer p.close()

		list, err := h.dash.Categories(service.WithProgress(ctx, p.report))
		p.close()
		if err != nil {
			h.fail(sse, err)
			return
		}
		if len(list.Categories) == 0 {
			sse.Patch(h.Render("no-data", Message(layers.ErrNoCategories)), "#category-select")
			sse.Signals(map[string]any{"progress": 100, "status": ""})
			return
		}

		sse.Patch(h.Render("category-select", newSelectData(list)), "#category-select")
		h.patchView(ctx, sse, list.Selected)
	}), nil
}

// View patches the view of the category signal.
func (h *Handler) View(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	category := signals.String("category")

	return h.Stream(func(sse humastar.SSE) {
		h.patchView(ctx, sse, category)
	}), nil
}

// Events forwards the events of the session's dataset as status signals.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	s, err := session.FromContext(ctx)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	bus := h.dash.Stats.Bus()

	return h.Stream(func(sse humastar.SSE) {
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				t, ok := s.Layers.Loaded()
				if !ok || t.ID != ev.ID {
					continue
				}
				sse.Signals(map[string]any{"status": eventStatus(ev)})
				sse.DispatchCustomEvent("redvial-"+ev.Resource, map[string]any{
					"action":   ev.Action,
					"dataset":  ev.ID,
					"category": ev.Category,
				})
			}
		}
	}), nil
}

func eventStatus(ev service.Event) string {
	switch ev.Resource {
	case "stats":
		return fmt.Sprintf("Estadísticas calculadas: %s", ev.Category)
	case "dataset":
		return "Capas cargadas"
	}
	return ""
}

func (h *Handler) patchView(ctx context.Context, sse humastar.SSE, category string) {
	v, err := h.dash.Select(ctx, category)
	if err != nil {
		h.fail(sse, err)
		return
	}

	sse.Patch(h.Render("stats-table", newTableData(v.Table())), "#stats-table")
	q := url.QueryEscape(v.Category)
	sse.Patch(h.Render("chart", chartData{
		Src: "/api/v1/charts/bar?category=" + q,
		Alt: "Cantones con mayor longitud de la red vial: " + v.Category,
	}), "#bar-chart")
	sse.Patch(h.Render("chart", chartData{
		Src: "/api/v1/charts/pie?category=" + q,
		Alt: "Distribución de la longitud de la red vial: " + v.Category,
	}), "#pie-chart")
	sse.Signals(map[string]any{
		"category":    v.Category,
		"mapCategory": v.Category,
		"error":       "",
		"status":      "",
	})
}

func (h *Handler) fail(sse humastar.SSE, err error) {
	h.log.WithError(err).Warn("dashboard request failed")
	sse.Signals(map[string]any{"error": Message(err), "status": "", "progress": 0})
}

// progress forwards load progress to the stream until closed. The load
// may outlive the request, so reports after close are dropped.
type progress struct {
	sse    humastar.SSE
	mu     sync.Mutex
	closed bool
}

func (p *progress) report(pct int, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sse.Signals(map[string]any{"progress": pct, "status": status})
}

func (p *progress) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type selectData struct {
	Label   string
	Options []option
}

func newSelectData(list service.CategoryList) selectData {
	out := selectData{Label: SelectLabel, Options: make([]option, len(list.Categories))}
	for i, c := range list.Categories {
		out.Options[i] = option{Value: c, Label: c, Selected: c == list.Selected}
	}
	return out
}

type tableData struct {
	report.Table
	Columns []string
}

func newTableData(t report.Table) tableData {
	return tableData{
		Table:   t,
		Columns: []string{report.ColumnCanton, report.ColumnLength, report.ColumnDensity},
	}
}

type chartData struct {
	Src string
	Alt string
}
