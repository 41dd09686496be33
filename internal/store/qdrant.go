package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eunjujo120/perso-ai-chatbot/pkg/version"
)

// DefaultCollection is the Qdrant collection holding the corpus.
const DefaultCollection = "perso_qa"

// qdrantUpsertBatch bounds the points sent per upsert request.
const qdrantUpsertBatch = 256

// QdrantConfig configures QdrantStore.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	// Timeout bounds each request when the caller's context has no deadline.
	Timeout time.Duration
}

// QdrantStore talks to a Qdrant server over its REST API.
//
// Collection is used as an alias. Replace writes a fresh collection named
// <Collection>_<unix nanos> and moves the alias to it in one request, so
// searches never see a partly written collection.
type QdrantStore struct {
	cfg    QdrantConfig
	root   string
	base   string
	client *http.Client

	// now names generated collections
	now func() time.Time
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore validates cfg. It does not contact the server.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid qdrant url: %w", err)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	root := strings.TrimRight(cfg.URL, "/")
	return &QdrantStore{
		cfg:    cfg,
		root:   root,
		base:   root + "/collections/" + url.PathEscape(cfg.Collection),
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}, nil
}

type qdrantEnvelope struct {
	Status any             `json:"status"`
	Result json.RawMessage `json:"result"`
}

type qdrantPoint struct {
	ID      uint64    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

type qdrantScored struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload *Payload        `json:"payload"`
}

// do sends a request for path under the collection.
func (s *QdrantStore) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	return s.send(ctx, method, s.base+path, body, out)
}

func (s *QdrantStore) collectionURL(name string) string {
	return s.root + "/collections/" + url.PathEscape(name)
}

func (s *QdrantStore) send(ctx context.Context, method, target string, body any, out any) (int, error) {
	path := strings.TrimPrefix(target, s.root)
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s: status %d: %s",
			method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return resp.StatusCode, nil
	}

	var env qdrantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode qdrant response: %w", err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode qdrant result: %w", err)
	}
	return resp.StatusCode, nil
}

// Replace writes points into a new collection and points the alias at it.
// The previous collection is deleted afterwards. On error the alias is
// untouched and the new collection is removed.
func (s *QdrantStore) Replace(ctx context.Context, dims int, points []Point) error {
	if dims == 0 && len(points) > 0 {
		dims = len(points[0].Vector)
	}
	for _, p := range points {
		if len(p.Vector) != dims {
			return dimensionMismatch(dims, len(p.Vector))
		}
	}

	next := fmt.Sprintf("%s_%d", s.cfg.Collection, s.now().UnixNano())
	nextURL := s.collectionURL(next)
	body := map[string]any{
		"vectors": map[string]any{"size": dims, "distance": "Cosine"},
	}
	if _, err := s.send(ctx, http.MethodPut, nextURL, body, nil); err != nil {
		return err
	}
	if err := s.upsertTo(ctx, nextURL, points); err != nil {
		s.drop(next)
		return err
	}

	prev, err := s.aliasTarget(ctx)
	if err != nil {
		s.drop(next)
		return err
	}
	if prev == "" {
		// a plain collection under the alias name blocks alias creation
		status, err := s.send(ctx, http.MethodDelete, s.collectionURL(s.cfg.Collection), nil, nil)
		if err != nil && status != http.StatusNotFound {
			s.drop(next)
			return err
		}
	}

	actions := []map[string]any{
		{"create_alias": map[string]any{"collection_name": next, "alias_name": s.cfg.Collection}},
	}
	if prev != "" {
		actions = append([]map[string]any{
			{"delete_alias": map[string]any{"alias_name": s.cfg.Collection}},
		}, actions...)
	}
	if _, err := s.send(ctx, http.MethodPost, s.root+"/collections/aliases",
		map[string]any{"actions": actions}, nil); err != nil {
		s.drop(next)
		return err
	}

	if prev != "" && prev != next {
		s.drop(prev)
	}
	return nil
}

// aliasTarget returns the collection the alias points at, or "".
func (s *QdrantStore) aliasTarget(ctx context.Context) (string, error) {
	var res struct {
		Aliases []struct {
			AliasName      string `json:"alias_name"`
			CollectionName string `json:"collection_name"`
		} `json:"aliases"`
	}
	if _, err := s.send(ctx, http.MethodGet, s.root+"/aliases", nil, &res); err != nil {
		return "", err
	}
	for _, a := range res.Aliases {
		if a.AliasName == s.cfg.Collection {
			return a.CollectionName, nil
		}
	}
	return "", nil
}

// drop deletes a collection on a fresh context; failures only leave garbage.
func (s *QdrantStore) drop(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	_, _ = s.send(ctx, http.MethodDelete, s.collectionURL(name), nil, nil)
}

// Upsert sends points in batches and waits for them to be indexed.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	return s.upsertTo(ctx, s.base, points)
}

func (s *QdrantStore) upsertTo(ctx context.Context, collection string, points []Point) error {
	for start := 0; start < len(points); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(points))
		batch := make([]qdrantPoint, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
		}
		if _, err := s.send(ctx, http.MethodPut, collection+"/points?wait=true", map[string]any{"points": batch}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Search queries the collection with payloads included.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var scored []qdrantScored
	if _, err := s.do(ctx, http.MethodPost, "/points/search", body, &scored); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(scored))
	for _, sp := range scored {
		var id uint64
		// string (UUID) ids from foreign writers decode as 0
		_ = json.Unmarshal(sp.ID, &id)
		hits = append(hits, Hit{ID: id, Score: sp.Score, Payload: sp.Payload})
	}
	return hits, nil
}

// Count returns the exact number of points.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	if _, err := s.do(ctx, http.MethodPost, "/points/count", map[string]any{"exact": true}, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Stats reports backend and size. Dimensions are not tracked client-side.
func (s *QdrantStore) Stats(ctx context.Context) Stats {
	n, _ := s.Count(ctx)
	return Stats{Backend: "qdrant", Points: n}
}

// Close drops idle connections.
func (s *QdrantStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
