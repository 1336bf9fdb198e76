package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

// Client is a minimal HTTP client for a Qdrant collection holding one
// point per product record. Point ids reuse the product record ids so a
// re-imported catalog overwrites instead of duplicating.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) IndexProduct(ctx context.Context, rec *domain.ProductRecord, vector []float32) error {
	if rec == nil || len(vector) == 0 {
		return fmt.Errorf("qdrant index: empty record or vector")
	}
	if err := c.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	body, err := json.Marshal(map[string]any{
		"points": []point{{
			ID:     rec.ID,
			Vector: vector,
			Payload: map[string]any{
				"product_id":        rec.ID,
				"name":              rec.Name,
				"sku":               rec.SKU,
				"snippet":           snippet(rec),
				"wattage":           rec.Wattage,
				"lifetime_hours":    rec.LifetimeHours,
				"color_temperature": rec.ColorTemperature,
				"ip_rating":         rec.IPRating,
				"application_area":  rec.ApplicationArea,
				"source_file":       rec.SourceFile,
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	body, err := json.Marshal(map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Candidate{
			ID:               payloadString(r.Payload, "product_id"),
			Origin:           domain.OriginSemantic,
			Score:            r.Score,
			Name:             payloadString(r.Payload, "name"),
			SKU:              payloadString(r.Payload, "sku"),
			Snippet:          payloadString(r.Payload, "snippet"),
			Wattage:          payloadInt(r.Payload, "wattage"),
			LifetimeHours:    payloadInt(r.Payload, "lifetime_hours"),
			ColorTemperature: payloadString(r.Payload, "color_temperature"),
			IPRating:         payloadString(r.Payload, "ip_rating"),
			ApplicationArea:  payloadString(r.Payload, "application_area"),
			SourceFile:       payloadString(r.Payload, "source_file"),
		})
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the collection already exists, which is the steady state.
	if resp.StatusCode == http.StatusConflict || resp.StatusCode < 300 {
		c.markCollectionEnsured(vectorSize)
		return nil
	}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if strings.Contains(strings.ToLower(string(payload)), "already exists") {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func snippet(rec *domain.ProductRecord) string {
	const max = 400
	text := rec.Description
	if text == "" {
		text = rec.Name
	}
	if len(text) > max {
		return text[:max]
	}
	return text
}

func payloadString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
