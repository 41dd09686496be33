package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWStore keeps an in-memory coder/hnsw graph and persists it beside a
// gob file of payloads. An empty path keeps everything in memory.
type HNSWStore struct {
	path string

	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	dims     int
	payloads map[uint64]Payload

	// point ID <-> graph key; replaced points leave orphan graph nodes
	// because deleting from coder/hnsw can break a small graph.
	idToKey map[uint64]uint64
	keyToID map[uint64]uint64
	nextKey uint64

	closed bool
}

type hnswMeta struct {
	Dims     int
	Payloads map[uint64]Payload
	IDToKey  map[uint64]uint64
	NextKey  uint64
}

var _ VectorStore = (*HNSWStore)(nil)

// NewHNSWStore opens the store at path, loading it when it exists.
func NewHNSWStore(path string) (*HNSWStore, error) {
	s := &HNSWStore{path: path}
	s.reset(0)

	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path + ".meta"); os.IsNotExist(err) {
		return s, nil
	}
	if err := s.load(); err != nil {
		slog.Warn("hnsw_store_unreadable",
			slog.String("path", path),
			slog.String("error", err.Error()))
		s.reset(0)
	}
	return s, nil
}

// must hold s.mu
func (s *HNSWStore) reset(dims int) {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 64
	g.Ml = 0.25

	s.graph = g
	s.dims = dims
	s.payloads = make(map[uint64]Payload)
	s.idToKey = make(map[uint64]uint64)
	s.keyToID = make(map[uint64]uint64)
	s.nextKey = 0
}

// Replace builds a new graph from points off to the side, saves it, and
// swaps it in. Readers see the old graph until the swap; on error nothing
// changes.
func (s *HNSWStore) Replace(_ context.Context, dims int, points []Point) error {
	if dims == 0 && len(points) > 0 {
		dims = len(points[0].Vector)
	}
	for _, p := range points {
		if len(p.Vector) != dims {
			return dimensionMismatch(dims, len(p.Vector))
		}
	}

	next := &HNSWStore{path: s.path}
	next.reset(dims)
	next.add(points)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if s.path != "" {
		if err := next.save(); err != nil {
			return err
		}
	}

	s.graph = next.graph
	s.dims = next.dims
	s.payloads = next.payloads
	s.idToKey = next.idToKey
	s.keyToID = next.keyToID
	s.nextKey = next.nextKey
	return nil
}

// Upsert adds points and saves the store.
func (s *HNSWStore) Upsert(_ context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	if s.dims == 0 {
		s.dims = len(points[0].Vector)
	}
	for _, p := range points {
		if len(p.Vector) != s.dims {
			return dimensionMismatch(s.dims, len(p.Vector))
		}
	}

	s.add(points)

	if s.path == "" {
		return nil
	}
	return s.save()
}

// must hold s.mu; vectors are already checked against s.dims
func (s *HNSWStore) add(points []Point) {
	for _, p := range points {
		if old, ok := s.idToKey[p.ID]; ok {
			delete(s.keyToID, old)
		}
		key := s.nextKey
		s.nextKey++
		s.graph.Add(hnsw.MakeNode(key, normalized(p.Vector)))
		s.idToKey[p.ID] = key
		s.keyToID[key] = p.ID
		s.payloads[p.ID] = p.Payload
	}
}

// Search returns the nearest live points by cosine similarity.
func (s *HNSWStore) Search(_ context.Context, vector []float32, limit int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if s.graph.Len() == 0 || limit <= 0 {
		return []Hit{}, nil
	}
	if len(vector) != s.dims {
		return nil, dimensionMismatch(s.dims, len(vector))
	}

	q := normalized(vector)
	orphans := s.graph.Len() - len(s.idToKey)
	nodes := s.graph.Search(q, limit+orphans)

	hits := make([]Hit, 0, limit)
	for _, n := range nodes {
		id, ok := s.keyToID[n.Key]
		if !ok {
			continue
		}
		p := s.payloads[id]
		hits = append(hits, Hit{
			ID:      id,
			Score:   1 - float64(s.graph.Distance(q, n.Value)),
			Payload: &p,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of live points.
func (s *HNSWStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}
	return len(s.idToKey), nil
}

// Stats reports backend, size and dimensions.
func (s *HNSWStore) Stats(context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Backend: "hnsw", Points: len(s.idToKey), Dimensions: s.dims}
}

// Close releases the graph.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

// must hold s.mu
func (s *HNSWStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// both temp files are written before either is renamed, so a failed
	// save leaves the previous pair intact
	graphTmp, err := writeTemp(s.path, func(f *os.File) error {
		return s.graph.Export(f)
	})
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	meta := hnswMeta{Dims: s.dims, Payloads: s.payloads, IDToKey: s.idToKey, NextKey: s.nextKey}
	metaTmp, err := writeTemp(s.path+".meta", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(meta)
	})
	if err != nil {
		_ = os.Remove(graphTmp)
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := os.Rename(graphTmp, s.path); err != nil {
		_ = os.Remove(graphTmp)
		_ = os.Remove(metaTmp)
		return fmt.Errorf("failed to save graph: %w", err)
	}
	if err := os.Rename(metaTmp, s.path+".meta"); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// must hold s.mu
func (s *HNSWStore) load() error {
	mf, err := os.Open(s.path + ".meta")
	if err != nil {
		return err
	}
	defer func() { _ = mf.Close() }()

	var meta hnswMeta
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	gf, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = gf.Close() }()

	s.reset(meta.Dims)
	// Import needs an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(gf)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	if meta.Payloads != nil {
		s.payloads = meta.Payloads
	}
	if meta.IDToKey != nil {
		s.idToKey = meta.IDToKey
	}
	s.nextKey = meta.NextKey
	for id, key := range s.idToKey {
		s.keyToID[key] = id
	}
	return nil
}

// writeTemp writes path+".tmp" and returns its name.
func writeTemp(path string, write func(*os.File) error) (string, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
