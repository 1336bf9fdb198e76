package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/infrastructure/resilience"
)

// Client talks to the Mistral chat-completions and embeddings APIs. All
// calls go through the shared resilience executor.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, apiKey, chatModel, embedModel string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) chat(ctx context.Context, operation, system, user string, jsonMode bool) (string, error) {
	request := map[string]any{
		"model": c.chatModel,
		"messages": []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"temperature": 0.1,
	}
	if jsonMode {
		request["response_format"] = map[string]string{"type": "json_object"}
	}

	var response struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}

	err := c.exec.Do(ctx, operation, classifyMistralError, func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", request, &response, operation)
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("mistral %s: empty choices", operation)
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// Embedder implements ports.Embedder on the embeddings API.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}

	err := e.client.exec.Do(ctx, "mistral.embed", classifyMistralError, func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/v1/embeddings", request, &response, "embed")
	})
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("mistral embed: got %d embeddings for %d inputs", len(response.Data), len(texts))
	}

	out := make([][]float32, len(response.Data))
	for i, d := range response.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

// IntentModel implements ports.IntentModel: the SEMANTIC/HYBRID decision
// for queries no pattern rule claimed.
type IntentModel struct {
	client *Client
}

func NewIntentModel(client *Client) *IntentModel {
	return &IntentModel{client: client}
}

func (m *IntentModel) ClassifyIntent(ctx context.Context, query string) (domain.Classification, error) {
	raw, err := m.client.chat(ctx, "mistral.classify", intentSystemPrompt, buildIntentPrompt(query), true)
	if err != nil {
		return domain.Classification{}, err
	}

	var parsed struct {
		Intent     string                 `json:"intent"`
		Confidence float64                `json:"confidence"`
		Filter     domain.AttributeFilter `json:"filter"`
		Keywords   []string               `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("parse intent json: %w", err)
	}

	intent := domain.Intent(strings.ToUpper(strings.TrimSpace(parsed.Intent)))
	if !intent.Valid() {
		return domain.Classification{}, fmt.Errorf("unparseable intent %q", parsed.Intent)
	}
	if parsed.Confidence <= 0 || parsed.Confidence > 1 {
		parsed.Confidence = 0.6
	}
	return domain.Classification{
		Query:      query,
		Intent:     intent,
		Confidence: parsed.Confidence,
		Filter:     parsed.Filter,
		Keywords:   parsed.Keywords,
	}, nil
}

// Generator implements ports.AnswerGenerator over the ranked evidence.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, evidence []domain.RankedCandidate, strict bool) (string, error) {
	system := answerSystemPrompt
	if strict {
		system = strictAnswerSystemPrompt
	}
	return g.client.chat(ctx, "mistral.answer", system, buildAnswerPrompt(question, evidence), false)
}

// Translator implements ports.Translator between the caller's language
// and the pipeline's working language.
type Translator struct {
	client          *Client
	workingLanguage string
}

func NewTranslator(client *Client, workingLanguage string) *Translator {
	return &Translator{client: client, workingLanguage: workingLanguage}
}

func (t *Translator) TranslateToWorking(ctx context.Context, text, sourceLang string) (string, error) {
	return t.client.chat(ctx, "mistral.translate",
		translateSystemPrompt, buildTranslatePrompt(text, sourceLang, t.workingLanguage), false)
}

func (t *Translator) TranslateFromWorking(ctx context.Context, text, targetLang string) (string, error) {
	return t.client.chat(ctx, "mistral.translate",
		translateSystemPrompt, buildTranslatePrompt(text, t.workingLanguage, targetLang), false)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
