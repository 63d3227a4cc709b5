package names

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDirectory(t *testing.T, opts ...Option) *Directory[int] {
	t.Helper()
	return NewDirectory[int](testNormalizer(t), NewComparator(nil), opts...)
}

func TestCombinations(t *testing.T) {
	want := [][]string{
		{"Jane", "J", "Doe"},
		{"Jane", "J"}, {"Jane", "Doe"}, {"J", "Doe"},
		{"Jane"}, {"J"}, {"Doe"},
	}
	got := Combinations([]string{"Jane", "J", "Doe"})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Combinations mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([][]string{{"John"}}, Combinations([]string{"John"})); diff != "" {
		t.Errorf("Combinations(one token) mismatch (-want +got):\n%s", diff)
	}
	if got := Combinations(nil); len(got) != 0 {
		t.Errorf("Combinations(nil) = %v, want empty", got)
	}
}

func TestCombinations_Count(t *testing.T) {
	for n := 1; n <= 10; n++ {
		tokens := make([]string, n)
		for i := range tokens {
			tokens[i] = fmt.Sprintf("t%d", i)
		}
		combs := Combinations(tokens)
		if len(combs) != (1<<n)-1 {
			t.Errorf("n=%d: %d combinations, want %d", n, len(combs), (1<<n)-1)
		}
		seen := make(map[string]bool, len(combs))
		for _, c := range combs {
			key := fmt.Sprint(c)
			if seen[key] {
				t.Errorf("n=%d: duplicate combination %v", n, c)
			}
			seen[key] = true
		}
	}
}

func TestAdd_ProbesEveryCombination(t *testing.T) {
	var probes []string
	c := NewComparator(func(w string) Keys {
		probes = append(probes, w)
		return Keys{Primary: "P" + w, Secondary: "S" + w}
	})
	d := NewDirectory[int](NewNormalizer(nil), c)

	if err := d.Add("Jane J Doe", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	want := []string{"doe", "doej", "doejane", "doejjane", "j", "jane", "jjane"}
	sort.Strings(probes)
	if diff := cmp.Diff(want, probes); diff != "" {
		t.Errorf("probes mismatch (-want +got):\n%s", diff)
	}

	strong := d.StrongMatches()
	weak := d.WeakMatches()
	if len(strong) != 7 || len(weak) != 7 {
		t.Fatalf("strong = %d keys, weak = %d keys, want 7 each", len(strong), len(weak))
	}
	for _, p := range want {
		if diff := cmp.Diff([]int{1}, strong["P"+p]); diff != "" {
			t.Errorf("strong[P%s] (-want +got):\n%s", p, diff)
		}
		if diff := cmp.Diff([]int{1}, weak["S"+p]); diff != "" {
			t.Errorf("weak[S%s] (-want +got):\n%s", p, diff)
		}
	}
}

func TestAdd_Idempotent(t *testing.T) {
	d := testDirectory(t)
	if err := d.Add("John Doe", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	strong, weak := d.StrongMatches(), d.WeakMatches()

	if err := d.Add("John Doe", 1); err != nil {
		t.Fatalf("Add again: %v", err)
	}
	if diff := cmp.Diff(strong, d.StrongMatches()); diff != "" {
		t.Errorf("strong changed on re-add (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(weak, d.WeakMatches()); diff != "" {
		t.Errorf("weak changed on re-add (-before +after):\n%s", diff)
	}
}

func TestAddNames(t *testing.T) {
	d := testDirectory(t)
	names := []string{"Led Zeppelin", "John Doe", "Jane Doe", "Janis Doe"}
	ids := []int{0, 1, 2, 3}

	if err := d.AddNames(names, ids); err != nil {
		t.Fatalf("AddNames: %v", err)
	}

	strong := d.StrongMatches()
	weak := d.WeakMatches()
	if len(weak) == 0 {
		t.Fatal("weak matches empty")
	}
	for i, name := range names {
		_, keys := d.Signature(name)
		if !containsID(strong[keys.Primary], ids[i]) {
			t.Errorf("%q: id %d missing from strong[%q] = %v", name, ids[i], keys.Primary, strong[keys.Primary])
		}
		if keys.Secondary != "" && !containsID(weak[keys.Secondary], ids[i]) {
			t.Errorf("%q: id %d missing from weak[%q] = %v", name, ids[i], keys.Secondary, weak[keys.Secondary])
		}
	}
	if got := d.Stats().Names; got != 4 {
		t.Errorf("Stats().Names = %d, want 4", got)
	}
}

func TestAddNames_LengthMismatch(t *testing.T) {
	d := testDirectory(t)
	err := d.AddNames([]string{"John Doe", "Jane Doe"}, []int{1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("AddNames error = %v, want ErrLengthMismatch", err)
	}
	if s := d.Stats(); s.Names != 0 || s.StrongKeys != 0 {
		t.Errorf("Stats = %+v, want empty directory", s)
	}
}

func TestAdd_TooManyTokens(t *testing.T) {
	d := testDirectory(t, WithMaxTokens(2))
	if err := d.Add("Anna Maria Luisa", 1); !errors.Is(err, ErrTooManyTokens) {
		t.Fatalf("Add error = %v, want ErrTooManyTokens", err)
	}
	if s := d.Stats(); s.Names != 0 || s.StrongKeys != 0 || s.WeakKeys != 0 {
		t.Errorf("Stats = %+v, want empty directory", s)
	}

	err := d.AddNames([]string{"John Doe", "Anna Maria Luisa", "Jane Doe"}, []int{1, 2, 3})
	if !errors.Is(err, ErrTooManyTokens) {
		t.Fatalf("AddNames error = %v, want ErrTooManyTokens", err)
	}
	if got := d.Stats().Names; got != 2 {
		t.Errorf("Stats().Names = %d, want 2 (batch continues past failures)", got)
	}
}

func TestAdd_NoTokenLimit(t *testing.T) {
	d := testDirectory(t, WithMaxTokens(0))
	if err := d.Add("a b c d e f g h i j k l m n", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestAdd_EncoderPanicLeavesDirectoryUnchanged(t *testing.T) {
	c := NewComparator(func(w string) Keys {
		if w == "jane" {
			panic("encoder failure")
		}
		return Keys{Primary: w, Secondary: w}
	})
	d := NewDirectory[int](NewNormalizer(nil), c)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic from encoder")
			}
		}()
		d.Add("Jane J Doe", 1)
	}()

	if s := d.Stats(); s.Names != 0 || s.StrongKeys != 0 || s.WeakKeys != 0 {
		t.Errorf("Stats = %+v, want empty directory after failed add", s)
	}
}

func TestAdd_EmptyName(t *testing.T) {
	d := testDirectory(t)
	for _, name := range []string{"", "   ", "123", "Dr."} {
		if err := d.Add(name, 1); err != nil {
			t.Errorf("Add(%q): %v", name, err)
		}
	}
	if s := d.Stats(); s.Names != 0 || s.StrongKeys != 0 || s.WeakKeys != 0 {
		t.Errorf("Stats = %+v, want empty directory", s)
	}
}

func TestAddNamesCount(t *testing.T) {
	d := testDirectory(t)
	filed, err := d.AddNamesCount([]string{"Jane Doe", "Dr.", "John Smith", "123"}, []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("AddNamesCount: %v", err)
	}
	if filed != 2 {
		t.Errorf("filed = %d, want 2", filed)
	}
	if ok, _ := d.Insert("Dr.", 5); ok {
		t.Error("Insert(Dr.) reported a filed name")
	}
	if _, err := d.AddNamesCount([]string{"a"}, nil); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestLookup(t *testing.T) {
	d := testDirectory(t)
	if err := d.AddNames(
		[]string{"Led Zeppelin", "John Doe", "Jane Doe", "Janis Doe"},
		[]int{0, 1, 2, 3},
	); err != nil {
		t.Fatalf("AddNames: %v", err)
	}

	c := d.Lookup("Doe, John")
	if c.Normalized != "doe john" {
		t.Errorf("Normalized = %q, want doe john", c.Normalized)
	}
	if diff := cmp.Diff([]int{1, 2}, c.Strong); diff != "" {
		t.Errorf("Lookup(Doe, John).Strong (-want +got):\n%s", diff)
	}

	c = d.Lookup("Doe")
	if diff := cmp.Diff([]int{1, 2, 3}, c.Strong); diff != "" {
		t.Errorf("Lookup(Doe).Strong (-want +got):\n%s", diff)
	}

	c = d.Lookup("Xyzzy Quux")
	if len(c.Strong) != 0 {
		t.Errorf("Lookup(Xyzzy Quux).Strong = %v, want empty", c.Strong)
	}

	c = d.Lookup("")
	if len(c.Strong) != 0 || len(c.Weak) != 0 {
		t.Errorf("Lookup(\"\") = %+v, want no candidates", c)
	}
}

func TestLookup_LongNamesKeepDistinctKeys(t *testing.T) {
	d := testDirectory(t)
	if err := d.Add("Christine Robbins", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	c := d.Lookup("Christopher Robinson")
	if c.Keys.Primary != "KRSTFRPNSN" {
		t.Errorf("Keys.Primary = %q, want KRSTFRPNSN", c.Keys.Primary)
	}
	if len(c.Strong) != 0 || len(c.Weak) != 0 {
		t.Errorf("Lookup(Christopher Robinson) = strong %v weak %v, want no candidates", c.Strong, c.Weak)
	}

	c = d.Lookup("Christine Robins")
	if diff := cmp.Diff([]int{1}, c.Strong); diff != "" {
		t.Errorf("Lookup(Christine Robins).Strong (-want +got):\n%s", diff)
	}
}

func TestBucket(t *testing.T) {
	d := NewDirectory[string](NewNormalizer(nil), NewComparator(func(w string) Keys {
		return Keys{Primary: "K", Secondary: "W" + w}
	}))
	d.Add("ann", "a")
	d.Add("bob", "b")

	strong, weak := d.Bucket("K")
	if diff := cmp.Diff([]string{"a", "b"}, strong); diff != "" {
		t.Errorf("strong bucket (-want +got):\n%s", diff)
	}
	if len(weak) != 0 {
		t.Errorf("weak bucket = %v, want empty", weak)
	}
	_, weak = d.Bucket("Wbob")
	if diff := cmp.Diff([]string{"b"}, weak); diff != "" {
		t.Errorf("weak bucket (-want +got):\n%s", diff)
	}
}

func TestStrongMatches_ReturnsCopy(t *testing.T) {
	d := testDirectory(t)
	d.Add("John", 1)
	m := d.StrongMatches()
	for k := range m {
		m[k] = append(m[k], 99)
	}
	delete(m, "JN")
	if got := d.StrongMatches()["JN"]; !containsID(got, 1) || containsID(got, 99) {
		t.Errorf("directory modified through snapshot: %v", got)
	}
}

func TestDirectory_Concurrent(t *testing.T) {
	d := testDirectory(t)
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			if err := d.Add("John Doe", id); err != nil {
				t.Errorf("Add: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for _, ids := range d.StrongMatches() {
				seen := make(map[int]bool, len(ids))
				for _, id := range ids {
					if seen[id] {
						t.Errorf("duplicate id %d in bucket", id)
					}
					seen[id] = true
				}
			}
			d.Lookup("John Doe")
		}()
	}
	wg.Wait()

	_, keys := d.Signature("John Doe")
	if got := len(d.StrongMatches()[keys.Primary]); got != writers {
		t.Errorf("bucket %q has %d ids, want %d", keys.Primary, got, writers)
	}
	if got := d.Stats().Names; got != writers {
		t.Errorf("Stats().Names = %d, want %d", got, writers)
	}
}

func containsID[ID comparable](ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
