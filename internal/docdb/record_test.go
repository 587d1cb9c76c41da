package docdb

import (
	"testing"
)

func TestRecordID(t *testing.T) {
	if got := (Record{"_id": "abc"}).ID(); got != "abc" {
		t.Errorf("expected id 'abc', got %q", got)
	}
	if got := (Record{"name": "x"}).ID(); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
	// Non-string identifiers are treated as absent.
	if got := (Record{"_id": 42}).ID(); got != "" {
		t.Errorf("expected empty id for non-string value, got %q", got)
	}
}

func TestRecordClone(t *testing.T) {
	orig := Record{
		"name": "a",
		"tags": []any{"x", "y"},
		"meta": map[string]any{"depth": map[string]any{"n": 1.0}},
	}
	c := orig.Clone()

	c["name"] = "b"
	c["tags"].([]any)[0] = "z"
	c["meta"].(map[string]any)["depth"].(map[string]any)["n"] = 2.0

	if orig["name"] != "a" {
		t.Error("clone shares top-level fields with original")
	}
	if orig["tags"].([]any)[0] != "x" {
		t.Error("clone shares nested slices with original")
	}
	if orig["meta"].(map[string]any)["depth"].(map[string]any)["n"] != 1.0 {
		t.Error("clone shares nested maps with original")
	}

	if Record(nil).Clone() != nil {
		t.Error("expected nil clone of nil record")
	}
}

func TestRecordMerge(t *testing.T) {
	orig := Record{"_id": "1", "name": "a", "size": 3.0}
	merged := orig.merge(map[string]any{"name": "b", "color": "red", "_id": "evil"})

	if merged["name"] != "b" {
		t.Errorf("expected partial to win on conflict, got %v", merged["name"])
	}
	if merged["size"] != 3.0 {
		t.Error("expected untouched fields to survive")
	}
	if merged["color"] != "red" {
		t.Error("expected new fields to be added")
	}
	if merged.ID() != "1" {
		t.Errorf("expected identifier to be preserved, got %q", merged.ID())
	}
	if orig["name"] != "a" {
		t.Error("merge mutated the original record")
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := newID()
		if id == "" {
			t.Fatal("newID returned empty string")
		}
		if seen[id] {
			t.Fatalf("newID returned duplicate %q", id)
		}
		seen[id] = true
	}
}
