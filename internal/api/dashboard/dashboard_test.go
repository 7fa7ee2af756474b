package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/aggregate"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/report"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/service"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/templates"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/wfs"
)

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&wfs.FetchError{TypeName: "x", StatusCode: 503}, "capas WFS"},
		{layers.ErrNoCategories, "No hay categorías"},
		{fmt.Errorf("%w: %q", aggregate.ErrUnknownCategory, "Sendero"), "no existe"},
		{context.DeadlineExceeded, "cancelada"},
		{fmt.Errorf("boom"), "boom"},
	}
	for _, tc := range cases {
		if got := Message(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("Message(%v)=%q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}

func TestSelectFragment(t *testing.T) {
	r, err := templates.New()
	if err != nil {
		t.Fatal(err)
	}
	html, err := r.Render("category-select", newSelectData(service.CategoryList{
		Categories: []string{"Autopista", "Primaria"},
		Selected:   "Primaria",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, SelectLabel) {
		t.Fatal("missing label")
	}
	if !strings.Contains(html, `<option value="Primaria" selected>`) {
		t.Fatalf("selected option not marked:\n%s", html)
	}
}

func TestTableFragment(t *testing.T) {
	r, err := templates.New()
	if err != nil {
		t.Fatal(err)
	}
	tbl := report.NewTable("Autopista", []aggregate.Stat{
		{Canton: "Alfa", AreaKm2: 100, LengthKm: 10, Density: 0.1},
		{Canton: "Beta", AreaKm2: 100, LengthKm: 0, Density: 0},
	})
	html, err := r.Render("stats-table", newTableData(tbl))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{report.ColumnDensity, "Alfa", "10.00", "0.10", "Beta"} {
		if !strings.Contains(html, want) {
			t.Fatalf("table missing %q:\n%s", want, html)
		}
	}
}

func TestPage(t *testing.T) {
	r, err := templates.New()
	if err != nil {
		t.Fatal(err)
	}
	p := NewPage(r, nil)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range append([]string{Title, "/api/v1/dashboard/categories"}, Sources...) {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}
