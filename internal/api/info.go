package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
)

type InfoHandler struct {
	sources layers.Sources
	dbOK    bool
}

func NewInfoHandler(sources layers.Sources, dbOK bool) *InfoHandler {
	return &InfoHandler{sources: sources, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

// LayerSource describes one WFS layer read by the service.
type LayerSource struct {
	URL       string `json:"url" doc:"WFS endpoint" example:"https://geos.snitcr.go.cr/be/IGN_5/wfs"`
	TypeName  string `json:"typeName" doc:"Feature type" example:"IGN_5:limitecantonal_5k"`
	SRSName   string `json:"srsName" doc:"Requested CRS" example:"urn:ogc:def:crs:EPSG::5367"`
	Attribute string `json:"attribute" doc:"Attribute kept from each feature" example:"canton"`
}

type InfoBody struct {
	Name     string      `json:"name" doc:"Service name"`
	Version  string      `json:"version" doc:"Service version"`
	Cantons  LayerSource `json:"cantons" doc:"Canton boundary layer"`
	Roads    LayerSource `json:"roads" doc:"Road network layer"`
	DB       bool        `json:"db" doc:"Whether the stats warehouse is available"`
	Features []string    `json:"features" doc:"Available features"`
}

func layerSource(s layers.Source) LayerSource {
	return LayerSource{
		URL:       s.Query.BaseURL,
		TypeName:  s.Query.TypeName,
		SRSName:   s.Query.SRSName,
		Attribute: s.Attribute,
	}
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "redvial",
		Version:  Version,
		Cantons:  layerSource(h.sources.Cantons),
		Roads:    layerSource(h.sources.Roads),
		DB:       h.dbOK,
		Features: []string{"wfs", "stats", "charts", "choropleth", "duckdb"},
	}}, nil
}
