// Package service contains the dashboard logic shared by the JSON API,
// the Datastar UI and the CLI.
package service

import "github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"

// StatRow is one row of the per-canton stat table.
type StatRow struct {
	Index    int     `json:"index" doc:"1-based row number" example:"1"`
	Canton   string  `json:"canton" doc:"Canton name" example:"San José"`
	LengthKm float64 `json:"lengthKm" doc:"Road length of the category inside the canton (km)" example:"42.17"`
	Density  float64 `json:"density" doc:"Road density (km/km²), rounded to 2 decimals" example:"0.95"`
	AreaKm2  float64 `json:"areaKm2" doc:"Planar canton area (km²)" example:"44.62"`
}

// StatTable is the stat table of one category.
type StatTable struct {
	Dataset  string    `json:"dataset" doc:"Identifier of the loaded dataset"`
	Category string    `json:"category" doc:"Selected road category" example:"Carretera Primaria"`
	TotalKm  float64   `json:"totalKm" doc:"Sum of all canton lengths (km)"`
	Columns  []string  `json:"columns" doc:"Human-readable column labels"`
	Rows     []StatRow `json:"rows" doc:"One row per canton, in canton order"`
}

// CategoryList is the sorted set of road categories.
type CategoryList struct {
	Categories []string `json:"categories" doc:"Road categories, sorted ascending"`
	Selected   string   `json:"selected,omitempty" doc:"Category currently selected in this session"`
}

// NewStatTable converts a report table for the API.
func NewStatTable(dataset string, t report.Table) StatTable {
	out := StatTable{
		Dataset:  dataset,
		Category: t.Category,
		TotalKm:  t.TotalKm,
		Columns:  []string{report.ColumnCanton, report.ColumnLength, report.ColumnDensity},
		Rows:     make([]StatRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = StatRow{
			Index:    r.Index,
			Canton:   r.Canton,
			LengthKm: r.LengthKm,
			Density:  r.Density,
			AreaKm2:  r.AreaKm2,
		}
	}
	return out
}
