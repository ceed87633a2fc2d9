package shocklet

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *WindowStore {
	t.Helper()
	store, err := OpenWindowStore(DefaultStoreConfig(filepath.Join(t.TempDir(), "windows.db")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWindowStoreRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run := RunRecord{Name: "cpu_load", Kernel: "haar", Weighting: "max_change", CreatedAt: time.Now()}
	windows := []WindowRecord{
		{Row: 0, Start: 79, End: 119, Weight: 10, Peak: 99},
		{Row: 1, Start: 10, End: 30, Weight: 2.5, Peak: 18},
	}
	runID, err := store.SaveRun(ctx, run, windows)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if runID == 0 {
		t.Fatal("expected a non-zero run ID")
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID || runs[0].Name != "cpu_load" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Kernel != "haar" || runs[0].Weighting != "max_change" {
		t.Fatalf("run metadata = %+v", runs[0])
	}

	got, err := store.ListWindows(ctx, runID)
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d windows, want 2", len(got))
	}
	for i, w := range got {
		want := windows[i]
		if w.RunID != runID || w.Row != want.Row || w.Start != want.Start ||
			w.End != want.End || w.Weight != want.Weight || w.Peak != want.Peak {
			t.Fatalf("window %d = %+v, want %+v", i, w, want)
		}
	}
}

func TestWindowStoreOrdering(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Inserted out of order; listed by row then start.
	runID, err := store.SaveRun(ctx, RunRecord{Name: "x", Kernel: "haar", Weighting: "max_change"}, []WindowRecord{
		{Row: 1, Start: 50, End: 60},
		{Row: 0, Start: 40, End: 45},
		{Row: 0, Start: 5, End: 12},
	})
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	got, err := store.ListWindows(ctx, runID)
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	if len(got) != 3 || got[0].Start != 5 || got[1].Start != 40 || got[2].Row != 1 {
		t.Fatalf("ordering: %+v", got)
	}
}

func TestWindowStoreDeleteRun(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID, err := store.SaveRun(ctx, RunRecord{Name: "gone", Kernel: "haar", Weighting: "max_change"},
		[]WindowRecord{{Row: 0, Start: 1, End: 5}})
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.DeleteRun(ctx, runID); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("runs after delete: %+v", runs)
	}
	windows, err := store.ListWindows(ctx, runID)
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("windows after delete: %+v", windows)
	}
}

func TestWindowStoreClosed(t *testing.T) {
	store := testStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Closing twice is a no-op.
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	ctx := context.Background()
	if _, err := store.SaveRun(ctx, RunRecord{Name: "x"}, nil); err == nil {
		t.Fatal("expected error on closed store")
	}
	if _, err := store.ListRuns(ctx); err == nil {
		t.Fatal("expected error on closed store")
	}
	if err := store.DeleteRun(ctx, 1); err == nil {
		t.Fatal("expected error on closed store")
	}
}

func TestOpenWindowStoreRequiresPath(t *testing.T) {
	if _, err := OpenWindowStore(StoreConfig{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}
