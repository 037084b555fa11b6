package correction

import (
	"bytes"
	"encoding/json"
	"sort"
)

// DiffSnapshots walks two snapshot trees and returns the complete,
// deterministic list of field-level changes. Keys are visited in
// lexicographic order so the output is stable across runs. Arrays are
// compared as opaque wholes: any difference in membership or order
// produces a single entry for the whole array path.
func DiffSnapshots(before, after Snapshot) []DiffEntry {
	entries := make([]DiffEntry, 0)
	diffWalk("", before, true, after, true, &entries)
	return entries
}

func diffWalk(path string, before any, hasBefore bool, after any, hasAfter bool, out *[]DiffEntry) {
	switch {
	case hasBefore && hasAfter:
		beforeMap, beforeIsMap := asMap(before)
		afterMap, afterIsMap := asMap(after)
		if beforeIsMap && afterIsMap {
			for _, key := range unionKeys(beforeMap, afterMap) {
				next := key
				if path != "" {
					next = path + "." + key
				}
				beforeVal, inBefore := beforeMap[key]
				afterVal, inAfter := afterMap[key]
				diffWalk(next, beforeVal, inBefore, afterVal, inAfter, out)
			}
			return
		}

		if !jsonEqual(before, after) {
			*out = append(*out, DiffEntry{
				Path:   formatPath(path),
				Before: stringPtr(valueToString(before)),
				After:  stringPtr(valueToString(after)),
			})
		}
	case hasBefore:
		*out = append(*out, DiffEntry{
			Path:   formatPath(path),
			Before: stringPtr(valueToString(before)),
		})
	case hasAfter:
		*out = append(*out, DiffEntry{
			Path:  formatPath(path),
			After: stringPtr(valueToString(after)),
		})
	}
}

func asMap(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for key := range a {
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	for key := range b {
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// jsonEqual compares two snapshot values through their canonical JSON
// encoding. encoding/json sorts map keys, so equal logical content always
// encodes identically.
func jsonEqual(a, b any) bool {
	aEncoded, errA := json.Marshal(a)
	bEncoded, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aEncoded, bEncoded)
}

func formatPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

// valueToString renders strings verbatim and everything else as pretty
// JSON, matching how diff output is shown to reviewers.
func valueToString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "<unencodable>"
	}
	return string(pretty)
}

func stringPtr(s string) *string {
	return &s
}
