package store

import (
	"reflect"
	"testing"
)

func TestDedupEntityIDsDesc(t *testing.T) {
	// Newest correction first; an entity repeated further down is older.
	ids := []int64{5, 3, 5, 1, 3}
	got := dedupEntityIDs(ids, true)
	want := []int64{5, 3, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedup desc = %v, want %v", got, want)
	}
}

func TestDedupEntityIDsAsc(t *testing.T) {
	// Oldest first; the entity's newest correction is its last occurrence,
	// so that occurrence wins.
	ids := []int64{3, 1, 5, 3, 5}
	got := dedupEntityIDs(ids, false)
	want := []int64{1, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dedup asc = %v, want %v", got, want)
	}
}

func TestPaginateIDsWalksWholeList(t *testing.T) {
	ids := []int64{10, 20, 30, 40, 50}

	page, next := paginateIDs(ids, 0, 2)
	if !reflect.DeepEqual(page, []int64{10, 20}) || next == nil || *next != 20 {
		t.Fatalf("first page = %v next %v", page, next)
	}

	page, next = paginateIDs(ids, *next, 2)
	if !reflect.DeepEqual(page, []int64{30, 40}) || next == nil || *next != 40 {
		t.Fatalf("second page = %v next %v", page, next)
	}

	page, next = paginateIDs(ids, *next, 2)
	if !reflect.DeepEqual(page, []int64{50}) || next != nil {
		t.Fatalf("last page = %v next %v", page, next)
	}
}

func TestPaginateIDsEmptyAfterCursor(t *testing.T) {
	page, next := paginateIDs([]int64{7}, 7, 3)
	if len(page) != 0 || next != nil {
		t.Fatalf("expected empty page, got %v next %v", page, next)
	}
}

func TestPaginateIDsStaleCursor(t *testing.T) {
	// A cursor that dropped out of the listing must not re-serve the
	// first page.
	page, next := paginateIDs([]int64{10, 20, 30}, 99, 2)
	if len(page) != 0 || next != nil {
		t.Fatalf("expected empty page for stale cursor, got %v next %v", page, next)
	}
}
