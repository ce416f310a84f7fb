package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siteDatabase.json")

	c := New(path)
	c.Add(Entry{PageURL: "https://x.com/1", TopWords: []string{"a", "b"}})
	if err := c.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Entry{{PageURL: "https://x.com/1", TopWords: []string{"a", "b"}}}
	if !reflect.DeepEqual(loaded.Entries(), want) {
		t.Errorf("Entries() = %+v, want %+v", loaded.Entries(), want)
	}

	// Saving the loaded cache again yields identical bytes.
	first, _ := os.ReadFile(path)
	if err := loaded.Save(); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Errorf("round trip not idempotent:\n%s\n%s", first, second)
	}
}

func TestLoadUsesJSONFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	body := `[{"pageUrl": "https://x.com/2", "topWords": ["go"]}]`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !c.Known("https://x.com/2") {
		t.Error("Known() = false for loaded page")
	}
}

func TestLoadMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(filepath.Join(dir, "absent.json"))
	if err != nil || c.Len() != 0 {
		t.Errorf("Load(absent) = %v, %v", c, err)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err = Load(empty)
	if err != nil || c.Len() != 0 {
		t.Errorf("Load(empty) = %v, %v", c, err)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"pageUrl": `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load(malformed) error = nil")
	}
}

func TestAddReplacesKeywords(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "c.json"))
	if !c.Add(Entry{PageURL: "u", TopWords: []string{"old"}}) {
		t.Error("first Add() = false")
	}
	if c.Add(Entry{PageURL: "u", TopWords: []string{"new"}}) {
		t.Error("second Add() = true")
	}
	if c.Len() != 1 || c.Entries()[0].TopWords[0] != "new" {
		t.Errorf("Entries() = %+v", c.Entries())
	}
}

func TestMatching(t *testing.T) {
	c := New("unused")
	c.Add(Entry{PageURL: "https://x.com/go", TopWords: []string{"Golang", "crawler"}})
	c.Add(Entry{PageURL: "https://x.com/rust", TopWords: []string{"rust"}})
	c.Add(Entry{PageURL: "https://y.com/go", TopWords: []string{"golang"}})

	got := c.Matching("x.com", []string{"GOLANG"})
	if len(got) != 1 || got[0].PageURL != "https://x.com/go" {
		t.Errorf("Matching() = %+v", got)
	}
	if got := c.Matching("x.com", nil); len(got) != 0 {
		t.Errorf("Matching(no terms) = %+v, want none", got)
	}
}

func TestSaveCreatesDirectoryAndEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	if err := New(path).Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty cache saved as %q", data)
	}
}
