// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/charts"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/service"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/session"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Dashboard *service.Dashboard
}

// Types

type CategoryInput struct {
	Category string `query:"category" doc:"Road category; defaults to the session's current selection" example:"Carretera Primaria"`
}

type StatsOutput struct {
	Body service.StatTable
}

type CategoriesOutput struct {
	Body service.CategoryList
}

// FileOutput carries a rendered chart, legend or GeoJSON document.
type FileOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterStats registers category and stat table routes.
func (h *APIHandler) RegisterStats(api huma.API) {
	huma.Get(api, "/api/v1/categories", h.GetCategories, huma.OperationTags("stats"))
	huma.Get(api, "/api/v1/stats", h.GetStats, huma.OperationTags("stats"))
}

// RegisterCharts registers chart image routes.
func (h *APIHandler) RegisterCharts(api huma.API) {
	huma.Get(api, "/api/v1/charts/bar", h.GetBarChart, huma.OperationTags("charts"))
	huma.Get(api, "/api/v1/charts/pie", h.GetPieChart, huma.OperationTags("charts"))
}

// RegisterMap registers map layer routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map/cantons", h.GetCantonLayer, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/roads", h.GetRoadLayer, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/legend", h.GetLegend, huma.OperationTags("map"))
}

// RegisterRoutes registers every route of h.
func (h *APIHandler) RegisterRoutes(api huma.API) {
	h.RegisterHealth(api)
	h.RegisterStats(api)
	h.RegisterCharts(api)
	h.RegisterMap(api)
}

// HTTPError maps domain errors to Huma status errors.
func HTTPError(err error) error {
	var fe *wfs.FetchError
	switch {
	case errors.As(err, &fe):
		return huma.Error502BadGateway("failed to fetch WFS layers", err)
	case errors.Is(err, aggregate.ErrUnknownCategory):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, layers.ErrNoCategories):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, session.ErrSessionRequired):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("request cancelled", err)
	}
	return huma.Error500InternalServerError("internal error", err)
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetCategories(ctx context.Context, input *struct{}) (*CategoriesOutput, error) {
	list, err := h.svc.Dashboard.Categories(ctx)
	if err != nil {
		return nil, HTTPError(err)
	}
	if list.Categories == nil {
		list.Categories = []string{}
	}
	return &CategoriesOutput{Body: list}, nil
}

func (h *APIHandler) view(ctx context.Context, category string) (*service.View, error) {
	v, err := h.svc.Dashboard.Select(ctx, category)
	if err != nil {
		return nil, HTTPError(err)
	}
	return v, nil
}

func (h *APIHandler) GetStats(ctx context.Context, input *CategoryInput) (*StatsOutput, error) {
	v, err := h.view(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: v.StatTable()}, nil
}

func (h *APIHandler) GetBarChart(ctx context.Context, input *CategoryInput) (*FileOutput, error) {
	v, err := h.view(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	data, err := v.BarChart(charts.SVG)
	return fileOutput(charts.SVG.ContentType(), data, err)
}

func (h *APIHandler) GetPieChart(ctx context.Context, input *CategoryInput) (*FileOutput, error) {
	v, err := h.view(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	data, err := v.PieChart(charts.SVG)
	return fileOutput(charts.SVG.ContentType(), data, err)
}

func (h *APIHandler) GetLegend(ctx context.Context, input *CategoryInput) (*FileOutput, error) {
	v, err := h.view(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	data, err := v.Legend()
	return fileOutput(charts.PNG.ContentType(), data, err)
}

func (h *APIHandler) GetCantonLayer(ctx context.Context, input *CategoryInput) (*FileOutput, error) {
	v, err := h.view(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	data, err := h.svc.Dashboard.Cantons(v).MarshalJSON()
	return fileOutput(geoJSON, data, err)
}

func (h *APIHandler) GetRoadLayer(ctx context.Context, input *CategoryInput) (*FileOutput, error) {
	v, err := h.view(ctx, input.Category)
	if err != nil {
		return nil, err
	}
	data, err := h.svc.Dashboard.Roads(v).MarshalJSON()
	return fileOutput(geoJSON, data, err)
}

const geoJSON = "application/geo+json"

func fileOutput(contentType string, data []byte, err error) (*FileOutput, error) {
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to render", err)
	}
	return &FileOutput{ContentType: contentType, CacheControl: "private, max-age=60", Body: data}, nil
}
