package db

import (
	"context"
	"testing"
)

func TestWarehouseStats(t *testing.T) {
	w, err := Open(Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	ctx := context.Background()

	if err := w.PutCantons(ctx, "d1", []Canton{{Name: "Alfa", AreaKm2: 100}, {Name: "Beta", AreaKm2: 50}}); err != nil {
		t.Fatal(err)
	}
	stats := []Stat{{Canton: "Alfa", LengthKm: 10, Density: 0.1}, {Canton: "Beta", LengthKm: 0, Density: 0}}
	if err := w.PutStats(ctx, "d1", "Autopista", stats); err != nil {
		t.Fatal(err)
	}
	// Writing the same table twice must not duplicate rows.
	if err := w.PutStats(ctx, "d1", "Autopista", stats); err != nil {
		t.Fatal(err)
	}

	got, err := w.Stats(ctx, "d1", "Autopista")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d, want 2", len(got))
	}
	if got[0] != stats[0] || got[1] != stats[1] {
		t.Errorf("stats=%+v, want %+v", got, stats)
	}

	var n int
	if err := w.DB().QueryRowContext(ctx, `SELECT count(*) FROM cantons WHERE dataset = 'd1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("cantons=%d, want 2", n)
	}

	if err := w.DropDataset(ctx, "d1"); err != nil {
		t.Fatal(err)
	}
	got, err = w.Stats(ctx, "d1", "Autopista")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("rows after drop=%d, want 0", len(got))
	}
}
