package api

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/db"
)

// DBHandler exposes the stats warehouse to read-only SQL.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(w *db.Warehouse) *DBHandler {
	return &DBHandler{db: w.DB()}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("warehouse"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("warehouse"))
}

// TableInfo describes one warehouse table.
type TableInfo struct {
	Name string `json:"name" doc:"Table name" example:"canton_road_stats"`
	Rows int64  `json:"rows" doc:"Number of rows"`
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []TableInfo `json:"tables" doc:"Warehouse tables"`
	}
}

// ListTables returns the warehouse tables with their row counts.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			names = append(names, name)
		}
	}
	rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []TableInfo{}
	for _, name := range names {
		info := TableInfo{Name: name}
		q := fmt.Sprintf(`SELECT count(*) FROM "%s"`, strings.ReplaceAll(name, `"`, `""`))
		if err := h.db.QueryRowContext(ctx, q).Scan(&info.Rows); err != nil {
			return nil, huma.Error500InternalServerError("Failed to count rows", err)
		}
		out.Body.Tables = append(out.Body.Tables, info)
	}
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" doc:"Read-only SQL query (SELECT, WITH, SHOW, DESCRIBE, SUMMARIZE)" example:"SELECT canton, density FROM canton_road_stats ORDER BY density DESC LIMIT 5"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body struct {
		Columns []string                 `json:"columns" doc:"Column names"`
		Rows    []map[string]interface{} `json:"rows" doc:"Query results"`
		Count   int                      `json:"count" doc:"Number of rows returned"`
	}
}

var readOnlyPrefixes = []string{"select", "with", "show", "describe", "summarize", "from"}

// ReadOnly reports whether q is a single read-only statement.
func ReadOnly(q string) bool {
	q = strings.TrimSpace(q)
	q = strings.TrimSuffix(q, ";")
	if strings.Contains(q, ";") {
		return false
	}
	lower := strings.ToLower(q)
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// Query executes a read-only SQL query against the warehouse.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !ReadOnly(input.Body.Query) {
		return nil, huma.Error400BadRequest("Only single read-only statements are allowed")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	out := &QueryOutput{}
	out.Body.Columns = columns
	out.Body.Rows = []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, huma.Error500InternalServerError("Failed to read row", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out.Body.Rows = append(out.Body.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	out.Body.Count = len(out.Body.Rows)
	return out, nil
}
