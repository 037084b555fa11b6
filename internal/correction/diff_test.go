package correction

import (
	"testing"
)

func artistSnapshot() Snapshot {
	return Snapshot{
		"name":        "Cocteau Twins",
		"artist_type": "Group",
		"start_date":  map[string]any{"value": "1979-01-01", "precision": "Year"},
		"end_date":    nil,
		"links":       []any{"https://example.com/ct"},
		"localized_names": []any{
			map[string]any{"language_id": int64(2), "name": "コクトー・ツインズ"},
		},
	}
}

func TestDiffIdenticalSnapshotsIsEmpty(t *testing.T) {
	if changes := DiffSnapshots(artistSnapshot(), artistSnapshot()); len(changes) != 0 {
		t.Fatalf("expected no changes, got %v", changes)
	}
}

func TestDiffSymmetry(t *testing.T) {
	before := artistSnapshot()
	after := artistSnapshot()
	after["name"] = "This Mortal Coil"
	after["links"] = []any{"https://example.com/tmc"}
	delete(after, "end_date")
	after["dissolved"] = true

	forward := DiffSnapshots(before, after)
	backward := DiffSnapshots(after, before)

	if len(forward) != len(backward) {
		t.Fatalf("asymmetric diff: %d forward vs %d backward entries", len(forward), len(backward))
	}

	mirrored := make(map[string][2]*string, len(backward))
	for _, entry := range backward {
		mirrored[entry.Path] = [2]*string{entry.Before, entry.After}
	}
	for _, entry := range forward {
		got, ok := mirrored[entry.Path]
		if !ok {
			t.Fatalf("path %q missing from reverse diff", entry.Path)
		}
		if !ptrEqual(entry.Before, got[1]) || !ptrEqual(entry.After, got[0]) {
			t.Fatalf("path %q not mirrored: forward %v/%v reverse %v/%v",
				entry.Path, str(entry.Before), str(entry.After), str(got[0]), str(got[1]))
		}
	}
}

func TestDiffReorderedArrayIsOneChange(t *testing.T) {
	track1 := map[string]any{"song_id": int64(1), "track_number": "1"}
	track2 := map[string]any{"song_id": int64(2), "track_number": "2"}
	before := Snapshot{"tracks": []any{track1, track2}}
	after := Snapshot{"tracks": []any{track2, track1}}

	changes := DiffSnapshots(before, after)
	if len(changes) != 1 {
		t.Fatalf("expected exactly one change, got %d: %v", len(changes), changes)
	}
	if changes[0].Path != "tracks" {
		t.Fatalf("expected path %q, got %q", "tracks", changes[0].Path)
	}
	if changes[0].Before == nil || changes[0].After == nil {
		t.Fatal("whole-array replacement must carry both sides")
	}
}

func TestDiffAgainstEmptyBaselineListsEveryField(t *testing.T) {
	target := Snapshot{
		"name":    "Slowdive",
		"aliases": []any{int64(4)},
	}
	changes := DiffSnapshots(Snapshot{}, target)
	if len(changes) != 2 {
		t.Fatalf("expected 2 introduced fields, got %d: %v", len(changes), changes)
	}
	for _, entry := range changes {
		if entry.Before != nil {
			t.Fatalf("introduced field %q must have nil before, got %q", entry.Path, *entry.Before)
		}
		if entry.After == nil {
			t.Fatalf("introduced field %q must carry after", entry.Path)
		}
	}
	// Lexicographic order over field names.
	if changes[0].Path != "aliases" || changes[1].Path != "name" {
		t.Fatalf("unexpected order: %q, %q", changes[0].Path, changes[1].Path)
	}
}

func TestDiffNestedMapPaths(t *testing.T) {
	before := Snapshot{
		"start_date": map[string]any{"value": "1990-05-01", "precision": "Day"},
	}
	after := Snapshot{
		"start_date": map[string]any{"value": "1990-05-01", "precision": "Month"},
	}
	changes := DiffSnapshots(before, after)
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %v", changes)
	}
	if changes[0].Path != "start_date.precision" {
		t.Fatalf("expected dotted path, got %q", changes[0].Path)
	}
	if *changes[0].Before != "Day" || *changes[0].After != "Month" {
		t.Fatalf("unexpected values: %q -> %q", *changes[0].Before, *changes[0].After)
	}
}

func TestDiffStringsRenderVerbatim(t *testing.T) {
	changes := DiffSnapshots(Snapshot{"name": "a"}, Snapshot{"name": "b"})
	if len(changes) != 1 || *changes[0].Before != "a" || *changes[0].After != "b" {
		t.Fatalf("strings must render without quoting, got %v", changes)
	}
}

func TestDiffRootScalarUsesDollarPath(t *testing.T) {
	entries := make([]DiffEntry, 0)
	diffWalk("", "a", true, "b", true, &entries)
	if len(entries) != 1 || entries[0].Path != "$" {
		t.Fatalf("root-level change must use $ path, got %v", entries)
	}
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func str(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}
