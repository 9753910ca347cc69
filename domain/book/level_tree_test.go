package book

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLevelTreeInsertFindDelete(t *testing.T) {
	tr := NewLevelTree()

	prices := []string{"101.5", "99", "105", "100.25", "99"}
	for _, p := range prices {
		tr.GetOrCreate(dec(p))
	}

	if tr.Size() != 4 {
		t.Fatalf("duplicate price should not add a level, size=%d", tr.Size())
	}
	if tr.Find(dec("100.25")) == nil {
		t.Error("100.25 should be present")
	}
	if tr.Find(dec("98")) != nil {
		t.Error("98 was never inserted")
	}

	if !tr.Delete(dec("99")) {
		t.Fatal("delete of existing level failed")
	}
	if tr.Delete(dec("99")) {
		t.Error("second delete should report absence")
	}
	if tr.Size() != 3 {
		t.Errorf("size after delete should be 3, got %d", tr.Size())
	}
}

func TestLevelTreeMinMax(t *testing.T) {
	tr := NewLevelTree()
	for _, p := range []string{"103", "97.5", "110", "101"} {
		tr.GetOrCreate(dec(p))
	}

	if !tr.Min().Price.Equal(dec("97.5")) {
		t.Errorf("min should be 97.5, got %s", tr.Min().Price)
	}
	if !tr.Max().Price.Equal(dec("110")) {
		t.Errorf("max should be 110, got %s", tr.Max().Price)
	}
}

func TestLevelTreeOrderedTraversal(t *testing.T) {
	tr := NewLevelTree()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		tr.GetOrCreate(decimal.NewFromInt(int64(rng.Intn(10_000))))
	}

	var prev decimal.Decimal
	first := true
	tr.ForEachAscending(func(lvl *PriceLevel) bool {
		if !first && lvl.Price.LessThanOrEqual(prev) {
			t.Fatalf("ascending walk out of order: %s after %s", lvl.Price, prev)
		}
		prev = lvl.Price
		first = false
		return true
	})

	first = true
	tr.ForEachDescending(func(lvl *PriceLevel) bool {
		if !first && lvl.Price.GreaterThanOrEqual(prev) {
			t.Fatalf("descending walk out of order: %s after %s", lvl.Price, prev)
		}
		prev = lvl.Price
		first = false
		return true
	})
}

func TestLevelTreeRandomDeletes(t *testing.T) {
	tr := NewLevelTree()
	rng := rand.New(rand.NewSource(7))

	present := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		v := int64(rng.Intn(500))
		if present[v] {
			continue
		}
		present[v] = true
		tr.GetOrCreate(decimal.NewFromInt(v))
	}

	for v := range present {
		if v%3 == 0 {
			if !tr.Delete(decimal.NewFromInt(v)) {
				t.Fatalf("delete of %d failed", v)
			}
			delete(present, v)
		}
	}

	if tr.Size() != len(present) {
		t.Fatalf("size %d, want %d", tr.Size(), len(present))
	}
	count := 0
	tr.ForEachAscending(func(lvl *PriceLevel) bool {
		count++
		return true
	})
	if count != len(present) {
		t.Fatalf("traversal saw %d levels, want %d", count, len(present))
	}
}
