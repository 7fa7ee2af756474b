package api

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/categories>; rel="categories"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/categories>; rel="categories"`,
		`</api/v1/tables>; rel="tables"`,
	},
	"/api/v1/categories": {
		`</api/v1/stats>; rel="stats"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
	},
}

// categoryLinks are added to every per-category resource, carrying the
// requested category along.
var categoryLinks = []struct{ path, rel string }{
	{"/api/v1/stats", "stats"},
	{"/api/v1/charts/bar", "bar-chart"},
	{"/api/v1/charts/pie", "pie-chart"},
	{"/api/v1/map/cantons", "cantons"},
	{"/api/v1/map/roads", "roads"},
	{"/api/v1/map/legend", "legend"},
}

func isCategoryPath(p string) bool {
	for _, l := range categoryLinks {
		if l.path == p {
			return true
		}
	}
	return false
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		if isCategoryPath(op.Path) {
			category := ctx.Query("category")
			for _, l := range categoryLinks {
				if l.path == op.Path {
					continue
				}
				target := l.path
				if category != "" {
					target += "?category=" + url.QueryEscape(category)
				}
				ctx.AppendHeader("Link", "<"+target+`>; rel="`+l.rel+`"`)
			}
			ctx.AppendHeader("Link", `</api/v1/categories>; rel="collection"`)
		}

		return v, nil
	}
}
