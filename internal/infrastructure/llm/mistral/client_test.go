package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
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

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestClassifyIntentParsesModelJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(chatResponse(
			`{"intent":"hybrid","confidence":0.8,"filter":{"wattage_min":100},"keywords":["floodlight"]}`,
		))
	}))
	defer srv.Close()

	m := NewIntentModel(New(srv.URL, "test-key", "chat-model", "embed-model", testExecutor()))
	cls, err := m.ClassifyIntent(context.Background(), "outdoor floodlights over 100 W")
	if err != nil {
		t.Fatalf("ClassifyIntent: %v", err)
	}
	if cls.Intent != domain.IntentHybrid {
		t.Fatalf("expected HYBRID, got %s", cls.Intent)
	}
	if cls.Filter.WattageMin != 100 {
		t.Fatalf("expected filter passthrough, got %+v", cls.Filter)
	}
	if cls.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %f", cls.Confidence)
	}
}

func TestClassifyIntentRejectsUnknownIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse(`{"intent":"MAYBE"}`))
	}))
	defer srv.Close()

	m := NewIntentModel(New(srv.URL, "", "chat-model", "embed-model", testExecutor()))
	if _, err := m.ClassifyIntent(context.Background(), "anything"); err == nil {
		t.Fatal("unparseable intent must be an error")
	}
}

func TestEmbedAlignsVectorsWithInputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2}},
				{"embedding": []float32{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	e := NewEmbedder(New(srv.URL, "", "chat-model", "embed-model", testExecutor()))
	vectors, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 || vectors[1][1] != 0.4 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestGenerateAnswerSendsEvidence(t *testing.T) {
	var captured struct {
		Messages []chatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("The Floodlight 150 draws 150 W."))
	}))
	defer srv.Close()

	g := NewGenerator(New(srv.URL, "", "chat-model", "embed-model", testExecutor()))
	evidence := []domain.RankedCandidate{{
		FusedCandidate: domain.FusedCandidate{
			Candidate: domain.Candidate{ID: "p-1", Name: "Floodlight 150", SKU: "FL-150", Wattage: 150},
		},
	}}

	answer, err := g.GenerateAnswer(context.Background(), "how much power does it draw", evidence, false)
	if err != nil {
		t.Fatalf("GenerateAnswer: %v", err)
	}
	if answer == "" {
		t.Fatal("expected non-empty answer")
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(captured.Messages))
	}
	if !strings.Contains(captured.Messages[1].Content, "FL-150") {
		t.Fatal("evidence must be embedded in the user prompt")
	}
}

func TestChatRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse("ok"))
	}))
	defer srv.Close()

	g := NewGenerator(New(srv.URL, "", "chat-model", "embed-model", testExecutor()))
	if _, err := g.GenerateAnswer(context.Background(), "q", nil, false); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestTranslateRoundTripTargets(t *testing.T) {
	var captured struct {
		Messages []chatMessage `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("translated"))
	}))
	defer srv.Close()

	tr := NewTranslator(New(srv.URL, "", "chat-model", "embed-model", testExecutor()), "en")
	if _, err := tr.TranslateToWorking(context.Background(), "welche leuchte", "de"); err != nil {
		t.Fatalf("TranslateToWorking: %v", err)
	}
	if !strings.Contains(captured.Messages[1].Content, "from German to English") {
		t.Fatalf("unexpected translate prompt: %q", captured.Messages[1].Content)
	}
}
