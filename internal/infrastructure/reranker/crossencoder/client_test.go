package crossencoder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/catalog-qa/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		MaxAttempts:     2,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      time.Millisecond,
		Multiplier:      1.0,
		BreakerDisabled: true,
	})
}

func TestScorePairsMapsNullToNaN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Query    string   `json:"query"`
			Passages []string `json:"passages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Passages) != 3 {
			t.Errorf("expected 3 passages, got %d", len(req.Passages))
		}
		_, _ = w.Write([]byte(`{"scores":[0.9,null,0.2]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "cross-encoder/ms-marco-MiniLM-L-6-v2", testExecutor())
	scores, err := c.ScorePairs(context.Background(), "floodlight wattage", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ScorePairs: %v", err)
	}
	if scores[0] != 0.9 || scores[2] != 0.2 {
		t.Fatalf("unexpected scores: %v", scores)
	}
	if !math.IsNaN(scores[1]) {
		t.Fatalf("null score must map to NaN, got %f", scores[1])
	}
}

func TestScorePairsCountMismatchIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"scores":[0.5]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "model", testExecutor())
	if _, err := c.ScorePairs(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestScorePairsEmptyInput(t *testing.T) {
	c := New("http://unused", "model", testExecutor())
	scores, err := c.ScorePairs(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Fatalf("expected nil/nil for empty input, got %v, %v", scores, err)
	}
}

func TestScorePairsRetriesTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"scores":[0.7]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "model", testExecutor())
	scores, err := c.ScorePairs(context.Background(), "q", []string{"a"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 || scores[0] != 0.7 {
		t.Fatalf("unexpected retry behavior: attempts=%d scores=%v", attempts, scores)
	}
}
