package flatindex

import "testing"

func TestInsertFindErase(t *testing.T) {
	t.Parallel()

	m := New[string](nil)
	m.Init(4)

	if _, ok := m.Find("a"); ok {
		t.Fatal("empty map must not find anything")
	}
	if !m.Insert("a", 1) {
		t.Fatal("Insert a must succeed")
	}
	if v, ok := m.Find("a"); !ok || v != 1 {
		t.Fatalf("Find a = %d, %v; want 1, true", v, ok)
	}
	// Update in place.
	if !m.Insert("a", 2) {
		t.Fatal("re-Insert a must succeed (update)")
	}
	if v, _ := m.Find("a"); v != 2 {
		t.Fatalf("Find a after update = %d, want 2", v)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}

	if !m.Erase("a") {
		t.Fatal("Erase a must succeed")
	}
	if _, ok := m.Find("a"); ok {
		t.Fatal("a must be absent after Erase")
	}
	if m.Erase("a") {
		t.Fatal("second Erase a must fail")
	}
}

func TestLogicalCapacityEnforced(t *testing.T) {
	t.Parallel()

	m := New[int](nil)
	m.Init(2)

	if !m.Insert(1, 10) || !m.Insert(2, 20) {
		t.Fatal("first two inserts must succeed")
	}
	if m.Insert(3, 30) {
		t.Fatal("third distinct-key insert must fail: logically full at maxEntries=2")
	}
	// Updating an existing key must still work when logically full.
	if !m.Insert(1, 11) {
		t.Fatal("update of existing key must succeed even when logically full")
	}
}

func TestTombstoneReuse(t *testing.T) {
	t.Parallel()

	// A constant hash puts every key on one probe chain starting at bucket
	// 0, so key i lands in bucket i and key 99 must pass key 1's tombstone.
	m := New[int](func(int) uint64 { return 0 })
	m.Init(4)

	for i := 0; i < 4; i++ {
		if !m.Insert(i, uint32(i)) {
			t.Fatalf("Insert(%d) must succeed", i)
		}
	}
	if !m.Erase(1) {
		t.Fatal("Erase(1) must succeed")
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	// Logical capacity freed up; a new key should now be insertable,
	// reusing the tombstone left by key 1.
	if !m.Insert(99, 999) {
		t.Fatal("Insert(99) must succeed after Erase freed capacity")
	}
	if m.tombstones != 0 {
		t.Fatalf("tombstones = %d, want 0 (key 1's tombstone reused)", m.tombstones)
	}
	if v, ok := m.Find(99); !ok || v != 999 {
		t.Fatalf("Find(99) = %d, %v; want 999, true", v, ok)
	}
	if _, ok := m.Find(1); ok {
		t.Fatal("Find(1) must still report absent")
	}
}

func TestInitZeroNormalizesToOne(t *testing.T) {
	t.Parallel()

	m := New[int](nil)
	m.Init(0)

	if !m.Insert(1, 1) {
		t.Fatal("Insert into Init(0) (normalized to 1) must succeed once")
	}
	if m.Insert(2, 2) {
		t.Fatal("a second distinct key must be refused at logical capacity 1")
	}
}

func TestFindAbsentKeyNeverFound(t *testing.T) {
	t.Parallel()

	m := New[string](nil)
	m.Init(16)
	for _, k := range []string{"a", "b", "c"} {
		m.Insert(k, 1)
	}
	for _, k := range []string{"x", "y", "z"} {
		if _, ok := m.Find(k); ok {
			t.Fatalf("Find(%q) must be absent", k)
		}
	}
}
