// Package embeddings serves word vectors from a word2vec binary file.
package embeddings

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/sirupsen/logrus"
)

// Lookup returns the vector of a word, or nil when the word is unknown
type Lookup interface {
	VectorFor(word string) []float32
}

// Store indexes a word2vec binary file on first use and reads vectors on
// demand, caching decoded vectors per word
type Store struct {
	path     string
	maxWords int

	once    sync.Once
	openErr error
	file    *os.File
	dim     int
	offsets map[string]int64
	cache   *bigcache.BigCache
	mu      sync.Mutex // guards reads from file
}

// NewStore creates a store over the word2vec file at path. Nothing is read
// until the first lookup.
func NewStore(path string, maxWords int) *Store {
	return &Store{path: path, maxWords: maxWords}
}

// Open indexes the file if it has not been indexed yet
func (s *Store) Open() error {
	s.once.Do(func() {
		s.openErr = s.load()
		if s.openErr != nil {
			logrus.Warnf("Word embeddings unavailable, every word is unknown: %v", s.openErr)
		}
	})
	return s.openErr
}

func (s *Store) load() error {
	if s.path == "" {
		return errors.New("no embeddings path configured")
	}

	startTime := time.Now()
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open embeddings: %w", err)
	}

	reader := bufio.NewReader(file)
	var vocab, dim int
	if _, err := fmt.Fscanf(reader, "%d %d\n", &vocab, &dim); err != nil {
		file.Close()
		return fmt.Errorf("failed to read embeddings header: %w", err)
	}
	if dim <= 0 {
		file.Close()
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}

	limit := vocab
	if s.maxWords > 0 && s.maxWords < limit {
		limit = s.maxWords
	}

	header := headerLength(vocab, dim)
	offset := int64(header)
	offsets := make(map[string]int64, limit)
	vectorBytes := int64(dim * 4)

	for i := 0; i < limit; i++ {
		word, err := reader.ReadString(' ')
		if err != nil {
			if err == io.EOF {
				break
			}
			file.Close()
			return fmt.Errorf("failed to read word %d: %w", i, err)
		}
		offset += int64(len(word))
		word = strings.TrimLeft(strings.TrimSuffix(word, " "), "\n")

		if _, err := reader.Discard(int(vectorBytes)); err != nil {
			file.Close()
			return fmt.Errorf("failed to skip vector of %q: %w", word, err)
		}
		if _, exists := offsets[word]; !exists {
			offsets[word] = offset
		}
		offset += vectorBytes
	}

	cfg := bigcache.DefaultConfig(30 * time.Minute)
	cfg.Shards = 256
	cfg.MaxEntrySize = dim * 4
	cfg.HardMaxCacheSize = 256
	cfg.Verbose = false
	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create vector cache: %w", err)
	}

	s.file = file
	s.dim = dim
	s.offsets = offsets
	s.cache = cache
	logrus.Infof("Indexed %d word vectors (dim=%d) in %v", len(offsets), dim, time.Since(startTime))
	return nil
}

// headerLength is the byte length of the "vocab dim\n" header line
func headerLength(vocab, dim int) int {
	return len(fmt.Sprintf("%d %d\n", vocab, dim))
}

// Dimension returns the vector size, 0 if the store could not be opened
func (s *Store) Dimension() int {
	if s.Open() != nil {
		return 0
	}
	return s.dim
}

// Size returns the number of indexed words
func (s *Store) Size() int {
	if s.Open() != nil {
		return 0
	}
	return len(s.offsets)
}

// VectorFor returns the vector of word, trying its lowercase form second.
// It returns nil for unknown words.
func (s *Store) VectorFor(word string) []float32 {
	if s.Open() != nil {
		return nil
	}

	for _, w := range []string{word, strings.ToLower(word)} {
		if v := s.vector(w); v != nil {
			return v
		}
	}
	return nil
}

func (s *Store) vector(word string) []float32 {
	offset, ok := s.offsets[word]
	if !ok {
		return nil
	}

	if raw, err := s.cache.Get(word); err == nil {
		return decode(raw)
	}

	raw := make([]byte, s.dim*4)
	s.mu.Lock()
	_, err := s.file.ReadAt(raw, offset)
	s.mu.Unlock()
	if err != nil {
		logrus.Debugf("Failed to read vector of %q: %v", word, err)
		return nil
	}

	if err := s.cache.Set(word, raw); err != nil {
		logrus.Debugf("Failed to cache vector of %q: %v", word, err)
	}
	return decode(raw)
}

func decode(raw []byte) []float32 {
	v := make([]float32, len(raw)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v
}

// Close releases the file and the vector cache
func (s *Store) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
	}
	return errors.Join(errs...)
}
