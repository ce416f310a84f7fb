package embeddings

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeVectors(t *testing.T, words []string, vectors [][]float32) string {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(words), len(vectors[0]))
	for i, w := range words {
		buf.WriteString(w + " ")
		for _, f := range vectors[i] {
			binary.Write(&buf, binary.LittleEndian, math.Float32bits(f))
		}
		buf.WriteByte('\n')
	}

	path := filepath.Join(t.TempDir(), "vectors.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write vectors: %v", err)
	}
	return path
}

func TestStoreVectorFor(t *testing.T) {
	path := writeVectors(t,
		[]string{"crawler", "template", "Page"},
		[][]float32{{1, 2}, {0.5, -0.5}, {3, 4}},
	)

	store := NewStore(path, 0)
	defer store.Close()

	if store.Dimension() != 2 || store.Size() != 3 {
		t.Fatalf("Dimension()/Size() = %d/%d, want 2/3", store.Dimension(), store.Size())
	}

	tests := []struct {
		word string
		want []float32
	}{
		{"crawler", []float32{1, 2}},
		{"template", []float32{0.5, -0.5}},
		{"Page", []float32{3, 4}},
		{"Crawler", []float32{1, 2}},
		{"unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			// Twice so the second read comes from the cache.
			for i := 0; i < 2; i++ {
				got := store.VectorFor(tt.word)
				if len(got) != len(tt.want) {
					t.Fatalf("VectorFor(%q) = %v, want %v", tt.word, got, tt.want)
				}
				for j := range got {
					if got[j] != tt.want[j] {
						t.Errorf("VectorFor(%q) = %v, want %v", tt.word, got, tt.want)
					}
				}
			}
		})
	}
}

func TestStoreMaxWords(t *testing.T) {
	path := writeVectors(t,
		[]string{"one", "two", "three"},
		[][]float32{{1}, {2}, {3}},
	)

	store := NewStore(path, 2)
	defer store.Close()

	if store.Size() != 2 {
		t.Errorf("Size() = %d, want 2", store.Size())
	}
	if store.VectorFor("three") != nil {
		t.Error("VectorFor(three) past max words returned a vector")
	}
}

func TestStoreMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.bin"), 0)
	defer store.Close()

	if store.Open() == nil {
		t.Error("Open() error = nil for missing file")
	}
	if store.VectorFor("anything") != nil {
		t.Error("VectorFor() on missing file returned a vector")
	}
}
