package store

import (
	"database/sql"
	"reflect"
	"testing"

	"discograph/api/internal/correction"
)

func TestDateValue(t *testing.T) {
	if got := dateValue(sql.NullString{}, sql.NullString{}); got != nil {
		t.Fatalf("absent date must be nil, got %v", got)
	}
	got := dateValue(
		sql.NullString{String: "1991-03-04", Valid: true},
		sql.NullString{String: "Day", Valid: true},
	)
	want := map[string]any{"value": "1991-03-04", "precision": "Day"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("dateValue = %v, want %v", got, want)
	}
}

func TestLocationValueNullWhenEmpty(t *testing.T) {
	if got := locationValue(sql.NullString{}, sql.NullString{}, sql.NullString{}); got != nil {
		t.Fatalf("empty location must be nil, got %v", got)
	}
	got := locationValue(sql.NullString{String: "GB", Valid: true}, sql.NullString{}, sql.NullString{})
	want := map[string]any{"country": "GB", "province": nil, "city": nil}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("locationValue = %v, want %v", got, want)
	}
}

func TestJSONListRoundTrip(t *testing.T) {
	raw, err := jsonb([]correction.Tenure{{JoinYear: int16Ptr(1988)}})
	if err != nil {
		t.Fatal(err)
	}
	list, err := jsonList(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one element, got %v", list)
	}
	entry, ok := list[0].(map[string]any)
	if !ok || entry["join_year"] == nil || entry["leave_year"] != nil {
		t.Fatalf("unexpected tenure shape: %v", list[0])
	}
}

func TestJSONListEmpty(t *testing.T) {
	list, err := jsonList(nil)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("nil raw must decode to empty list, got %v err %v", list, err)
	}
}

func int16Ptr(v int16) *int16 { return &v }
