package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/touchstone-names/pkg/names"
)

func testDirectory(t *testing.T, opts ...names.Option) *names.Directory[string] {
	t.Helper()
	n, err := names.DefaultNormalizer()
	if err != nil {
		t.Fatalf("DefaultNormalizer: %v", err)
	}
	return names.NewDirectory[string](n, nil, opts...)
}

func TestIngest_CSV(t *testing.T) {
	path := writeFile(t, "people.csv", []byte("id,name\na1,Jane Doe\na2,John Doe\na3,Anna Maria Luisa Rossi\n"))
	dir := testDirectory(t, names.WithMaxTokens(3))

	res, err := Ingest(context.Background(), dir, Spec{
		Name:        "people",
		Kind:        "csv",
		Path:        path,
		HasHeader:   true,
		NameColumns: []string{"name"},
		IDColumn:    "id",
		BatchSize:   2,
	}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Read != 3 || res.Indexed != 2 || res.Rejected != 1 {
		t.Errorf("Result = %+v, want read 3, indexed 2, rejected 1", res)
	}

	c := dir.Lookup("John Doe")
	found := false
	for _, id := range c.Strong {
		if id == "a2" {
			found = true
		}
	}
	if !found {
		t.Errorf("Lookup(John Doe).Strong = %v, want a2", c.Strong)
	}
}

func TestIngest_SQLite(t *testing.T) {
	dir := testDirectory(t)
	res, err := Ingest(context.Background(), dir, Spec{
		Kind:  "sqlite",
		Path:  tempPeopleDB(t),
		Query: "SELECT full_name, id FROM people",
	}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2", res.Indexed)
	}
	if got := dir.Stats().Names; got != 2 {
		t.Errorf("Stats().Names = %d, want 2", got)
	}
}

func TestIngest_Errors(t *testing.T) {
	dir := testDirectory(t)
	ctx := context.Background()

	if _, err := Ingest(ctx, dir, Spec{Kind: "parquet", Path: "x.parquet"}, nil); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := Ingest(ctx, dir, Spec{Kind: "csv"}, nil); err == nil {
		t.Error("expected error for missing path")
	}
	if _, err := Ingest(ctx, dir, Spec{Kind: "csv", Path: filepath.Join(t.TempDir(), "nope.csv")}, nil); err == nil {
		t.Error("expected error for missing file")
	}
}

type failingIndexer struct{}

func (failingIndexer) AddNames([]string, []string) error {
	return errors.New("index unavailable")
}

func TestIngest_IndexFailureAborts(t *testing.T) {
	path := writeFile(t, "people.csv", []byte("Jane Doe\n"))
	_, err := Ingest(context.Background(), failingIndexer{}, Spec{Kind: "csv", Path: path}, nil)
	if err == nil || !strings.Contains(err.Error(), "index unavailable") {
		t.Errorf("Ingest error = %v, want index failure", err)
	}
}

func TestIngestAll_ContinuesPastFailures(t *testing.T) {
	dir := testDirectory(t)
	good := writeFile(t, "good.csv", []byte("Jane Doe\n"))
	specs := []Spec{
		{Name: "missing", Kind: "csv", Path: filepath.Join(t.TempDir(), "missing.csv")},
		{Name: "good", Kind: "csv", Path: good},
	}

	results, err := IngestAll(context.Background(), dir, specs, nil)
	if err == nil {
		t.Error("expected joined error for failing source")
	}
	if len(results) != 1 || results[0].Source != "good" {
		t.Errorf("results = %+v, want only good", results)
	}
	if got := dir.Stats().Names; got != 1 {
		t.Errorf("Stats().Names = %d, want 1", got)
	}
}

func TestIngestAll_Hooks(t *testing.T) {
	dir := testDirectory(t)
	good := writeFile(t, "good.csv", []byte("Jane Doe\nJohn Doe\n"))
	specs := []Spec{
		{Name: "good", Kind: "csv", Path: good},
		{Name: "missing", Kind: "csv", Path: filepath.Join(t.TempDir(), "missing.csv")},
	}

	db := openStatus(t)
	db.Sync(specs)
	var seen []string
	IngestAll(context.Background(), dir, specs, nil, func(spec Spec, res *Result, err error) {
		seen = append(seen, spec.Name)
		if err := db.RecordIngest(spec, res, err); err != nil {
			t.Errorf("RecordIngest: %v", err)
		}
	})

	if strings.Join(seen, ",") != "good,missing" {
		t.Errorf("hook saw %v, want good then missing", seen)
	}
	got := statusByName(t, db)
	if st := got["good"]; st.LastIndexed == nil || *st.LastIndexed != 2 || st.LastError != nil {
		t.Errorf("good = %+v, want 2 indexed and no error", st)
	}
	if st := got["missing"]; st.LastError == nil {
		t.Errorf("missing = %+v, want an error", st)
	}
}
