package keywords

import (
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDict() *Dictionary {
	return &Dictionary{
		Energies: []string{"funny", "weird", "cozy"},
		Subjects: []string{"cats", "robots", "space", "pirates"},
		Formats:  []string{"clip", "photo", "story"},
		Locales:  []string{"japan", "iceland"},
		Eras:     []string{"retro", "modern"},
		Extras:   []string{"compilation", "fails"},
	}
}

func assertDistinctNonEmpty(t *testing.T, got []string) {
	t.Helper()
	seen := make(map[string]bool)
	for _, q := range got {
		if strings.TrimSpace(q) == "" {
			t.Errorf("empty query in result %v", got)
		}
		if seen[q] {
			t.Errorf("duplicate query %q in result %v", q, got)
		}
		seen[q] = true
	}
}

func TestSynthesizeReturnsExactlyN(t *testing.T) {
	d := testDict()
	for _, n := range []int{1, 3, 5, 10} {
		rng := rand.New(rand.NewSource(42))
		got := Synthesize(d, n, rng)
		if len(got) != n {
			t.Errorf("n=%d: got %d queries: %v", n, len(got), got)
		}
		assertDistinctNonEmpty(t, got)
	}
}

func TestSynthesizeEmptyDictionary(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	got := Synthesize(&Dictionary{}, 5, rng)
	if diff := cmp.Diff(fallbackQueries, got); diff != "" {
		t.Errorf("fallback mismatch (-want +got):\n%s", diff)
	}

	got = Synthesize(nil, 1, rng)
	if diff := cmp.Diff(fallbackQueries[:1], got); diff != "" {
		t.Errorf("truncated fallback mismatch (-want +got):\n%s", diff)
	}
	assertDistinctNonEmpty(t, got)
}

func TestSynthesizeTinyDictionary(t *testing.T) {
	d := &Dictionary{
		Subjects: []string{"cats"},
		Energies: []string{"funny"},
		Formats:  []string{"clip"},
	}
	allowed := map[string]bool{"funny": true, "cats": true, "clip": true}

	rng := rand.New(rand.NewSource(7))
	got := Synthesize(d, 1, rng)
	if len(got) != 1 {
		t.Fatalf("expected exactly one query, got %v", got)
	}
	for _, tok := range strings.Fields(got[0]) {
		if !allowed[tok] {
			t.Errorf("unexpected token %q in query %q", tok, got[0])
		}
	}
}

func TestSynthesizeNeverExceedsCombinationSpace(t *testing.T) {
	// One subject, nothing else: only a single distinct query is achievable.
	d := &Dictionary{Subjects: []string{"cats"}}
	rng := rand.New(rand.NewSource(3))

	got := Synthesize(d, 10, rng)
	if len(got) != 1 {
		t.Fatalf("expected 1 achievable query, got %v", got)
	}
	if got[0] != "cats" {
		t.Errorf("got %q, want %q", got[0], "cats")
	}
}

func TestSynthesizeDeterministicWithSeed(t *testing.T) {
	d := testDict()
	a := Synthesize(d, 5, rand.New(rand.NewSource(99)))
	b := Synthesize(d, 5, rand.New(rand.NewSource(99)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different queries (-a +b):\n%s", diff)
	}
}

func TestSynthesizeConcurrentSharedGenerator(t *testing.T) {
	d := testDict()
	rng := NewLockedRand(42)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				got := Synthesize(d, 5, rng)
				if len(got) != 5 {
					t.Errorf("got %d queries: %v", len(got), got)
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewLockedRandMatchesPlainSource(t *testing.T) {
	locked := NewLockedRand(7)
	plain := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		if l, p := locked.Int63(), plain.Int63(); l != p {
			t.Fatalf("draw %d: locked %d != plain %d", i, l, p)
		}
	}
}

func TestSynthesizeZeroCount(t *testing.T) {
	if got := Synthesize(testDict(), 0, rand.New(rand.NewSource(1))); len(got) != 0 {
		t.Errorf("n=0: got %v", got)
	}
}
