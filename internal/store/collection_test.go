package store

import (
	"reflect"
	"sync"
	"testing"
)

type rec struct {
	ID  int64
	Val string
}

func newRecs(items ...rec) *Collection[rec] {
	c := NewCollection(func(r rec) int64 { return r.ID })
	c.Upsert(items...)
	return c
}

func ids(items []rec) []int64 {
	out := make([]int64, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}

func TestUpsertAppendsNewKeys(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{2, "b"})
	c.Upsert(rec{3, "c"})

	want := []int64{1, 2, 3}
	if got := ids(c.Items()); !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{2, "b"}, rec{3, "c"})
	c.Upsert(rec{2, "b2"})

	items := c.Items()
	if got := ids(items); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("positions changed: %v", got)
	}
	if items[1].Val != "b2" {
		t.Errorf("item 2 = %q, want b2", items[1].Val)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	c := newRecs(rec{1, "a"})
	c.Upsert(rec{2, "b"})
	once := c.Items()
	c.Upsert(rec{2, "b"})
	twice := c.Items()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second identical upsert changed the collection: %v vs %v", once, twice)
	}
}

func TestUpsertFrontPrependsNewKeys(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{2, "b"})
	c.UpsertFront(rec{3, "c"})

	if got := ids(c.Items()); !reflect.DeepEqual(got, []int64{3, 1, 2}) {
		t.Errorf("order = %v, want [3 1 2]", got)
	}

	// Existing keys are still overwritten in place, not moved.
	c.UpsertFront(rec{2, "b2"})
	items := c.Items()
	if got := ids(items); !reflect.DeepEqual(got, []int64{3, 1, 2}) {
		t.Errorf("existing key moved: %v", got)
	}
	if items[2].Val != "b2" {
		t.Errorf("item 2 = %q, want b2", items[2].Val)
	}
}

func TestUpsertBatchDuplicateKeysLastWins(t *testing.T) {
	c := newRecs()
	c.Upsert(rec{5, "first"}, rec{5, "second"})

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("duplicate keys in one batch produced %d items", len(items))
	}
	if items[0].Val != "second" {
		t.Errorf("batch duplicate resolved to %q, want second", items[0].Val)
	}
}

func TestReplaceSubstitutesAtSameIndex(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{100, "placeholder"}, rec{3, "c"})
	c.Replace(100, rec{501, "real"})

	if got := ids(c.Items()); !reflect.DeepEqual(got, []int64{1, 501, 3}) {
		t.Errorf("order = %v, want [1 501 3]", got)
	}
}

func TestReplaceNoopOnAbsentKey(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{2, "b"})
	before := c.Items()
	c.Replace(999, rec{501, "real"})

	if got := c.Items(); !reflect.DeepEqual(got, before) {
		t.Errorf("replace of absent key changed the collection: %v", got)
	}
}

func TestRemove(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{2, "b"}, rec{3, "c"})
	c.Remove(2)
	if got := ids(c.Items()); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("order after remove = %v", got)
	}

	before := c.Items()
	c.Remove(999)
	if got := c.Items(); !reflect.DeepEqual(got, before) {
		t.Errorf("remove of absent key changed the collection: %v", got)
	}
}

func TestLastWriteWinsUnderConcurrency(t *testing.T) {
	// Interleaved writers must never produce duplicate keys; whichever
	// write lands last owns the value.
	c := newRecs(rec{7, "v0"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Upsert(rec{7, "fetch"})
		}()
		go func() {
			defer wg.Done()
			c.Upsert(rec{7, "edit"})
		}()
	}
	wg.Wait()

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("key 7 duplicated: %d entries", len(items))
	}
	if v := items[0].Val; v != "fetch" && v != "edit" {
		t.Errorf("unexpected final value %q", v)
	}
}

func TestFindAndLen(t *testing.T) {
	c := newRecs(rec{1, "a"}, rec{2, "b"})
	if got, ok := c.Find(2); !ok || got.Val != "b" {
		t.Errorf("Find(2) = %v, %v", got, ok)
	}
	if _, ok := c.Find(9); ok {
		t.Error("Find(9) should miss")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}
