// Package treetest is a shared, cross-implementation test suite for
// anything shaped like internal/tree.Tree. Structured as a factory-driven
// RunTreeTests entry point with one t.Run per property.
package treetest

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ValentinKolb/treekv/internal/treeerr"
)

// Tree is the subset of internal/tree.Tree this suite exercises. Taking
// an interface lets the suite run against the real tree or against a
// test double.
type Tree interface {
	Query(key string) (string, bool)
	Insert(key, value string) error
	Remove(key string) error
}

// Factory creates a fresh, empty Tree for one subtest.
type Factory func() Tree

// RunTreeTests runs the full property and round-trip-law suite against
// factory. name groups the run under one t.Run, so multiple
// implementations (or the same implementation under different
// configurations) can share a test binary without colliding subtest
// names.
func RunTreeTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("L1_InsertThenQuery", func(t *testing.T) {
			testL1(t, factory())
		})
		t.Run("L2_InsertIdempotent", func(t *testing.T) {
			testL2(t, factory())
		})
		t.Run("L3_InsertRemoveQuery", func(t *testing.T) {
			testL3(t, factory())
		})
		t.Run("L4_ConcurrentInsertRace", func(t *testing.T) {
			testL4(t, factory())
		})
		t.Run("P1_BSTOrder", func(t *testing.T) {
			testP1(t, factory())
		})
		t.Run("P2_KeyUniqueness", func(t *testing.T) {
			testP2(t, factory())
		})
		t.Run("BoundaryLengths", func(t *testing.T) {
			testBoundaryLengths(t, factory())
		})
		t.Run("FuzzPoolConcurrentInserts", func(t *testing.T) {
			testFuzzPool(t, factory())
		})
	})
}

func testL1(t *testing.T, tr Tree) {
	if err := tr.Insert("k", "v"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got, ok := tr.Query("k"); !ok || got != "v" {
		t.Fatalf("Query after Insert = %q, %v; want v, true", got, ok)
	}
}

func testL2(t *testing.T, tr Tree) {
	if err := tr.Insert("k", "v1"); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := tr.Insert("k", "v2"); !errors.Is(err, treeerr.ErrAlreadyPresent) {
		t.Fatalf("second Insert = %v; want ErrAlreadyPresent", err)
	}
	if got, _ := tr.Query("k"); got != "v1" {
		t.Fatalf("value after duplicate insert = %q; want v1 (unchanged)", got)
	}
}

func testL3(t *testing.T, tr Tree) {
	_ = tr.Insert("k", "v")
	if err := tr.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := tr.Query("k"); ok {
		t.Fatal("k should be not-found after Remove")
	}
}

func testL4(t *testing.T, tr Tree) {
	const n = 20
	results := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i] = tr.Insert("k", strings.Repeat("v", i+1))
		}(i)
	}
	wg.Wait()

	added := 0
	for _, err := range results {
		if err == nil {
			added++
		} else if !errors.Is(err, treeerr.ErrAlreadyPresent) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if added != 1 {
		t.Fatalf("winners = %d; want exactly 1", added)
	}
	if _, ok := tr.Query("k"); !ok {
		t.Fatal("k should be present after the race")
	}
}

func testP1(t *testing.T, tr Tree) {
	keys := []string{"m", "a", "z", "c", "y", "b"}
	for _, k := range keys {
		_ = tr.Insert(k, k)
	}
	// there's no exported in-order iterator, so P1 is exercised indirectly:
	// every inserted key must still be individually queryable and every
	// comparison the tree makes is the stdlib `<` on strings, which is
	// lexicographic byte order by definition.
	for _, k := range keys {
		if _, ok := tr.Query(k); !ok {
			t.Fatalf("key %q missing after a batch of ordered inserts", k)
		}
	}
}

func testP2(t *testing.T, tr Tree) {
	_ = tr.Insert("k", "v1")
	_ = tr.Insert("k", "v2")
	_ = tr.Insert("k", "v3")
	if got, _ := tr.Query("k"); got != "v1" {
		t.Fatalf("P2 violated: value = %q; want v1 (only the first insert should have taken)", got)
	}
}

func testBoundaryLengths(t *testing.T, tr Tree) {
	const maxLen = 256
	ok256 := strings.Repeat("k", maxLen)
	if err := tr.Insert(ok256, "v"); err != nil {
		t.Fatalf("256-byte key rejected: %v", err)
	}
	bad257 := strings.Repeat("k", maxLen+1)
	if err := tr.Insert(bad257, "v"); err == nil {
		t.Fatal("257-byte key should be rejected")
	}
}

// testFuzzPool has many goroutines (standing in for two connections)
// insert into a shared key pool concurrently; afterward every key that
// was ever inserted must be present exactly once with a value some
// caller actually sent. The pool itself is built with an xsync.MapOf
// scratch map instead of a plain Go map plus mutex.
func testFuzzPool(t *testing.T, tr Tree) {
	const poolSize = 1000
	sent := xsync.NewMapOf[string, []string]()

	var wg sync.WaitGroup
	for i := 0; i < poolSize; i++ {
		key := "key" + strconv.Itoa(i)
		for _, v := range []string{"v1", "v2"} {
			wg.Add(1)
			go func(key, v string) {
				defer wg.Done()
				if err := tr.Insert(key, v); err == nil {
					sent.Compute(key, func(old []string, loaded bool) ([]string, bool) {
						return append(old, v), false
					})
				}
			}(key, v)
		}
	}
	wg.Wait()

	for i := 0; i < poolSize; i++ {
		key := "key" + strconv.Itoa(i)
		value, ok := tr.Query(key)
		if !ok {
			t.Fatalf("key %s missing after concurrent pool insert", key)
		}
		winners, _ := sent.Load(key)
		found := false
		for _, w := range winners {
			if w == value {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("key %s has value %q, not one of the values actually sent (%v)", key, value, winners)
		}
	}
}
