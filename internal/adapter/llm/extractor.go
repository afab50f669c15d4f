// Package llm implements the requirement extractor port against an
// OpenAI-compatible chat completions endpoint (LiteLLM proxy in production).
package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/config"
	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
	"github.com/wayfarer-ai/wayfarer/internal/port/cache"
	"github.com/wayfarer-ai/wayfarer/internal/port/extractor"
	"github.com/wayfarer-ai/wayfarer/internal/resilience"
)

// Extractor calls a chat model to turn free text into a requirements delta.
type Extractor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	breaker    *resilience.Breaker
}

// NewExtractor creates an extractor client from config.
func NewExtractor(cfg config.LLM) *Extractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Extractor{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetCache attaches a cache for extraction results. The same message against
// the same known fields always yields the same delta, so responses are safe
// to memoize.
func (e *Extractor) SetCache(c cache.Cache, ttl time.Duration) {
	e.cache = c
	e.cacheTTL = ttl
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (e *Extractor) SetBreaker(b *resilience.Breaker) {
	e.breaker = b
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *format       `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type format struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// extractionDoc is the JSON contract the model is prompted to produce.
type extractionDoc struct {
	Fields  map[string]any `json:"fields"`
	Missing []string       `json:"missing"`
}

// Extract sends the user message plus the known fields to the model and
// parses the returned delta.
func (e *Extractor) Extract(ctx context.Context, userText string, prior *trip.State) (*extractor.Extraction, error) {
	key := e.cacheKey(userText, prior)
	if e.cache != nil {
		if raw, ok, err := e.cache.Get(ctx, key); err == nil && ok {
			var doc extractionDoc
			if err := json.Unmarshal(raw, &doc); err == nil {
				return docToExtraction(doc), nil
			}
		}
	}

	doc, err := e.call(ctx, userText, prior)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if raw, err := json.Marshal(doc); err == nil {
			_ = e.cache.Set(ctx, key, raw, e.cacheTTL)
		}
	}
	return docToExtraction(doc), nil
}

func (e *Extractor) call(ctx context.Context, userText string, prior *trip.State) (extractionDoc, error) {
	known, err := json.Marshal(prior.Fields)
	if err != nil {
		return extractionDoc{}, fmt.Errorf("marshal known fields: %w", err)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Known fields so far:\n%s\n\nUser message:\n%s", known, userText)},
		},
		Temperature:    0,
		ResponseFormat: &format{Type: "json_object"},
	})
	if err != nil {
		return extractionDoc{}, fmt.Errorf("marshal chat request: %w", err)
	}

	var respBody []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			e.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if e.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		}

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("llm API error %d: %s", resp.StatusCode, string(data))
		}
		respBody = data
		return nil
	}

	if e.breaker != nil {
		err = e.breaker.Do(call)
	} else {
		err = call()
	}
	if err != nil {
		return extractionDoc{}, fmt.Errorf("extract: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return extractionDoc{}, fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return extractionDoc{}, fmt.Errorf("extract: model returned no choices")
	}

	content := stripFences(chat.Choices[0].Message.Content)
	var doc extractionDoc
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return extractionDoc{}, fmt.Errorf("parse extraction: %w", err)
	}

	normalizeDestination(doc.Fields)
	return doc, nil
}

// cacheKey fingerprints the message together with the fields already known,
// since the same sentence can mean different deltas at different stages of
// the conversation.
func (e *Extractor) cacheKey(userText string, prior *trip.State) string {
	h := sha256.New()
	h.Write([]byte(e.model))
	h.Write([]byte{0})
	h.Write([]byte(userText))
	h.Write([]byte{0})
	if known, err := json.Marshal(prior.Fields); err == nil {
		h.Write(known)
	}
	return "extract:" + hex.EncodeToString(h.Sum(nil))
}

func docToExtraction(doc extractionDoc) *extractor.Extraction {
	return &extractor.Extraction{
		Delta:   trip.Delta(doc.Fields),
		Missing: doc.Missing,
	}
}

// stripFences removes a surrounding markdown code fence, which some models
// add around JSON despite the response_format hint.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// vagueDestinations are phrases that describe a kind of place rather than a
// bookable destination. A model that returns one of these as the destination
// gets it reclassified as destination_type so discovery can run.
var vagueDestinations = []string{
	"somewhere",
	"anywhere",
	"warm",
	"sunny",
	"cold",
	"beach",
	"mountain",
	"tropical",
	"cheap",
	"exotic",
	"surprise",
}

func normalizeDestination(fields map[string]any) {
	if fields == nil {
		return
	}
	dest, ok := fields["destination"].(string)
	if !ok || dest == "" {
		return
	}
	lower := strings.ToLower(dest)
	for _, vague := range vagueDestinations {
		if strings.Contains(lower, vague) {
			delete(fields, "destination")
			if _, exists := fields["destination_type"]; !exists {
				fields["destination_type"] = dest
			}
			return
		}
	}
}
