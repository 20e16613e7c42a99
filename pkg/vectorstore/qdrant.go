package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/geosentry/geosentry/pkg/models"
)

// HTTPStore is a Store backed by a Qdrant-shaped HTTP API (createCollection,
// upsert, search over a named collection), per the outbound contract in
// spec.md §6. No vector-database SDK appears anywhere in the example
// corpus this codebase is grounded on, so the wire calls are made directly
// with net/http + encoding/json rather than a generated client.
type HTTPStore struct {
	BaseURL    string
	APIKey     string
	Dimensions int
	HTTPClient *http.Client
	Logger     *logrus.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewHTTPStore builds an HTTPStore targeting baseURL (e.g. a Qdrant
// deployment's REST endpoint). apiKey may be empty for unauthenticated
// deployments.
func NewHTTPStore(baseURL, apiKey string, dimensions int, logger *logrus.Logger) *HTTPStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPStore{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Dimensions: dimensions,
		HTTPClient: http.DefaultClient,
		Logger:     logger,
	}
}

// EnsureCollection idempotently creates CollectionName with cosine distance
// and the configured dimensionality. Concurrent callers within one process
// collapse to a single creation attempt via sync.Once; the Qdrant API
// itself is additionally idempotent on "collection already exists".
func (s *HTTPStore) EnsureCollection(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     s.Dimensions,
				"distance": "Cosine",
			},
		}
		s.ensureErr = s.put(ctx, "/collections/"+CollectionName, body, nil)
	})
	return s.ensureErr
}

// Upsert writes point to the collection. Calling Upsert twice with the
// same id replaces the point, per Qdrant's native upsert semantics.
func (s *HTTPStore) Upsert(ctx context.Context, point models.VectorPoint) error {
	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      point.ID,
				"vector":  point.Vector,
				"payload": point.Payload,
			},
		},
	}
	return s.put(ctx, "/collections/"+CollectionName+"/points", body, nil)
}

// Search runs cosine nearest-neighbour search for vector, returning up to k
// scored points.
func (s *HTTPStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var response struct {
		Result []struct {
			ID      string                    `json:"id"`
			Score   float32                   `json:"score"`
			Payload models.SessionFingerprint `json:"payload"`
			Vector  []float32                 `json:"vector"`
		} `json:"result"`
	}

	if err := s.post(ctx, "/collections/"+CollectionName+"/points/search", body, &response); err != nil {
		return nil, err
	}

	points := make([]models.ScoredPoint, 0, len(response.Result))
	for _, r := range response.Result {
		points = append(points, models.ScoredPoint{
			VectorPoint: models.VectorPoint{ID: r.ID, Vector: r.Vector, Payload: r.Payload},
			Score:       r.Score,
		})
	}
	return points, nil
}

func (s *HTTPStore) put(ctx context.Context, path string, body, out any) error {
	return s.do(ctx, http.MethodPut, path, body, out)
}

func (s *HTTPStore) post(ctx context.Context, path string, body, out any) error {
	return s.do(ctx, http.MethodPost, path, body, out)
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("api-key", s.APIKey)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		s.Logger.WithFields(logrus.Fields{"path": path, "error": err}).Warn("vector store call failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("vector store returned HTTP %d for %s", resp.StatusCode, path)
		s.Logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Warn("vector store call failed")
		return err
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
