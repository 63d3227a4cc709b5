package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func openStatus(t *testing.T) *StatusDB {
	t.Helper()
	db, err := OpenStatusDB(filepath.Join(t.TempDir(), "status.db"))
	if err != nil {
		t.Fatalf("OpenStatusDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func statusByName(t *testing.T, db *StatusDB) map[string]SourceStatus {
	t.Helper()
	list, err := db.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	out := make(map[string]SourceStatus, len(list))
	for _, st := range list {
		out[st.Name] = st
	}
	return out
}

func TestStatusDB_SyncAndRecordIngest(t *testing.T) {
	db := openStatus(t)
	specs := []Spec{
		{Name: "a", Kind: "csv", Path: "a.csv"},
		{Name: "b", Kind: "sqlite", Path: "b.db"},
	}
	if err := db.Sync(specs); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if err := db.RecordIngest(specs[0], &Result{Source: "a", Indexed: 10, Rejected: 2}, nil); err != nil {
		t.Fatalf("RecordIngest: %v", err)
	}
	if err := db.RecordIngest(specs[0], nil, errors.New("boom")); err != nil {
		t.Fatalf("RecordIngest failure: %v", err)
	}

	// Re-sync with a moved path keeps history.
	specs[0].Path = "moved.csv"
	if err := db.Sync(specs); err != nil {
		t.Fatalf("re-Sync: %v", err)
	}

	got := statusByName(t, db)
	if len(got) != 2 {
		t.Fatalf("sources = %d, want 2", len(got))
	}
	a := got["a"]
	if a.Path != "moved.csv" {
		t.Errorf("a.Path = %q, want moved.csv", a.Path)
	}
	if a.LastIndexed == nil || *a.LastIndexed != 10 || a.LastRejected == nil || *a.LastRejected != 2 {
		t.Errorf("a counts = %v/%v, want 10/2 kept after a failed ingest", a.LastIndexed, a.LastRejected)
	}
	if a.LastError == nil || *a.LastError != "boom" {
		t.Errorf("a.LastError = %v, want boom", a.LastError)
	}
	if a.LastIngest == nil {
		t.Error("a.LastIngest not set")
	}
	if b := got["b"]; b.LastIngest != nil || b.LastCheck != nil {
		t.Errorf("b = %+v, want no history", b)
	}
}

func TestChecker_CheckAll(t *testing.T) {
	srv200 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
	}))
	defer srv200.Close()
	srv404 := httptest.NewServer(http.NotFoundHandler())
	defer srv404.Close()

	local := writeFile(t, "here.csv", []byte("Jane Doe\n"))
	db := openStatus(t)
	db.Sync([]Spec{
		{Name: "remote-ok", Kind: "csv", Path: srv200.URL + "/names.csv"},
		{Name: "remote-404", Kind: "csv", Path: srv404.URL + "/names.csv"},
		{Name: "local-ok", Kind: "csv", Path: local},
		{Name: "local-missing", Kind: "csv", Path: filepath.Join(t.TempDir(), "gone.csv")},
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewChecker(db, logger, time.Hour).CheckAll(context.Background())

	want := map[string]int{"remote-ok": 200, "remote-404": 404, "local-ok": 200, "local-missing": 404}
	got := statusByName(t, db)
	for name, status := range want {
		st := got[name]
		if st.LastStatus == nil || *st.LastStatus != status {
			t.Errorf("%s status = %v, want %d", name, st.LastStatus, status)
		}
		if st.LastCheck == nil {
			t.Errorf("%s last_check not set", name)
		}
	}
	if got["local-missing"].LastError == nil {
		t.Error("local-missing should carry an error")
	}
}

func TestChecker_StartStopsOnCancel(t *testing.T) {
	db := openStatus(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewChecker(db, nil, time.Millisecond).Start(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
