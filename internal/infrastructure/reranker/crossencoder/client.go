package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/resilience"
)

// Client scores (query, passage) pairs against a cross-encoder inference
// service. Pairs the service could not score come back as null and are
// surfaced as NaN, which the reranker treats as "keep fused order".
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, model string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exec:       exec,
	}
}

func (c *Client) ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model":    c.model,
		"query":    query,
		"passages": passages,
	}
	var response struct {
		Scores []*float64 `json:"scores"`
	}

	err := c.exec.Do(ctx, "reranker.score", classifyRerankerError, func(ctx context.Context) error {
		return c.postJSON(ctx, "/rerank", request, &response)
	})
	if err != nil {
		return nil, wrapTemporary("score pairs", err)
	}
	if len(response.Scores) != len(passages) {
		return nil, fmt.Errorf("reranker: got %d scores for %d passages", len(response.Scores), len(passages))
	}

	out := make([]float64, len(response.Scores))
	for i, s := range response.Scores {
		if s == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *s
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reranker request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{code: resp.StatusCode, status: resp.Status, body: string(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}

type statusError struct {
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	if strings.TrimSpace(e.body) == "" {
		return fmt.Sprintf("reranker status: %s", e.status)
	}
	return fmt.Sprintf("reranker status: %s: %s", e.status, strings.TrimSpace(e.body))
}

func classifyRerankerError(err error) resilience.Class {
	if err == nil {
		return resilience.ClassRejected
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ClassRejected
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.code {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ClassTransient
		}
		return resilience.ClassRejected
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ClassTransient
	}
	return resilience.ClassFatal
}

func wrapTemporary(operation string, err error) error {
	if err == nil {
		return nil
	}
	if classifyRerankerError(err) == resilience.ClassTransient || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
