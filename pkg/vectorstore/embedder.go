package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Embedder generates a dense embedding for a text projection. Dimension is
// fixed by whichever model is configured; Embed itself performs no
// retries — spec.md assigns retry policy to the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HTTPEmbedder calls an external embedding endpoint over HTTP. Like
// HTTPStore, this is plain net/http rather than a provider SDK: no example
// in the corpus this codebase learns its stack from wires up an embedding
// SDK, so the wire call is made directly.
type HTTPEmbedder struct {
	BaseURL    string
	APIKey     string
	Model      string
	dimensions int
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// NewHTTPEmbedder builds an HTTPEmbedder. dimensions is the embedding
// model's native vector size, fixed at startup per spec.md §4.F.
func NewHTTPEmbedder(baseURL, apiKey, model string, dimensions int, logger *logrus.Logger) *HTTPEmbedder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HTTPEmbedder{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		dimensions: dimensions,
		HTTPClient: http.DefaultClient,
		Logger:     logger,
	}
}

// Dimensions returns the fixed embedding dimensionality.
func (e *HTTPEmbedder) Dimensions() int { return e.dimensions }

// Embed requests an embedding for text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model": e.Model,
		"input": text,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		e.Logger.WithFields(logrus.Fields{"error": err}).Warn("embedding call failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("embedding model returned HTTP %d", resp.StatusCode)
		e.Logger.WithFields(logrus.Fields{"status": resp.StatusCode}).Warn("embedding call failed")
		return nil, err
	}

	var body struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("embedding model returned no vectors")
	}

	return body.Data[0].Embedding, nil
}
