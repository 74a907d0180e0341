//go:build go1.18

package kvcache

import (
	"strings"
	"testing"
)

// Fuzz basic Insert/Get/InsertOrAssign/Erase semantics on Single under
// arbitrary string inputs. Guards against panics and checks that the
// handle contract holds for whatever key/value the fuzzer produces.
func FuzzSingle_InsertGetEraseInsertOrAssign(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c := NewSingle[string, string](16, Options[string, string]{})

		h := c.Insert(1, k, v)
		if fdtokenIsNull(h) {
			t.Fatalf("Insert must not return null on a fresh cache")
		}
		got, ok := c.Get(h)
		if !ok || *got != v {
			gotStr := "<nil>"
			if got != nil {
				gotStr = *got
			}
			t.Fatalf("after Insert/Get: want %q, got %q ok=%v", v, gotStr, ok)
		}

		// A second Insert on the same key must be a no-op on value and
		// return the same handle.
		h2 := c.Insert(1, k, "other")
		if h2 != h {
			t.Fatalf("duplicate Insert returned a different handle: %v != %v", h2, h)
		}
		if got2, ok := c.Get(h); !ok || *got2 != v {
			got2Str := "<nil>"
			if got2 != nil {
				got2Str = *got2
			}
			t.Fatalf("after duplicate Insert: want %q, got %q ok=%v", v, got2Str, ok)
		}

		// Erase must delete and return true exactly once.
		if !c.Erase(h) {
			t.Fatalf("Erase must return true")
		}
		if _, ok := c.Get(h); ok {
			t.Fatalf("key must be absent after Erase")
		}
		if c.Erase(h) {
			t.Fatalf("Erase must return false the second time")
		}

		// After removal, Insert should succeed again with a fresh handle.
		h3 := c.Insert(1, k, v)
		if fdtokenIsNull(h3) {
			t.Fatalf("Insert after Erase must succeed")
		}
		if h3 == h {
			t.Fatalf("the re-inserted handle must carry a new generation: %v == %v", h3, h)
		}
	})
}
