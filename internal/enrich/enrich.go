// Package enrich fills in pronunciation, definitions, translations and
// memory hooks for words using a chat-completion service.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
)

const systemPrompt = `You are an English vocabulary tutor for Chinese learners. Reply with a single JSON object containing the keys "phonetic", "definition", "translation", "example" and "mnemonic". Use IPA notation for "phonetic", simple English for "definition", Simplified Chinese for "translation", one natural sentence for "example" and a short memory hook for "mnemonic".`

// Config holds the connection settings for the completion service.
type Config struct {
	Key         string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client calls a chat-completion endpoint that speaks the OpenAI wire
// format, such as DeepSeek.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	policy      *bluemonday.Policy
}

// NewClient creates a client for the given completion service.
func NewClient(cfg Config) *Client {
	return &Client{
		apiKey:      cfg.Key,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		policy:      bluemonday.StrictPolicy(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// EnrichWord asks the completion service for study material on a term. The
// model is held to JSON output, and every field is scrubbed of markup
// before it is returned. Failures are not retried.
func (c *Client) EnrichWord(ctx context.Context, term string) (domain.Enrichment, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "The word is: " + term},
		},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to call completion service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Enrichment{}, fmt.Errorf("completion service returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domain.Enrichment{}, fmt.Errorf("completion response contained no choices")
	}

	var enrichment domain.Enrichment
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &enrichment); err != nil {
		return domain.Enrichment{}, fmt.Errorf("failed to decode enrichment for %q: %w", term, err)
	}

	return c.scrub(enrichment), nil
}

// scrub strips any markup the model slipped into a field and normalizes
// whitespace. The result is plain text.
func (c *Client) scrub(e domain.Enrichment) domain.Enrichment {
	clean := func(s string) string {
		return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
	}
	return domain.Enrichment{
		Phonetic:    clean(e.Phonetic),
		Definition:  clean(e.Definition),
		Translation: clean(e.Translation),
		Example:     clean(e.Example),
		Mnemonic:    clean(e.Mnemonic),
	}
}

// Store is the slice of persistence Backfill needs.
type Store interface {
	ListUnenrichedWords(limit int) ([]domain.Word, error)
	SaveEnrichment(id uuid.UUID, e domain.Enrichment, at time.Time) error
}

// Backfill enriches up to batch words that have never been enriched. A word
// that fails is logged and skipped so one bad response cannot stall the
// rest of the batch.
func Backfill(ctx context.Context, logger *slog.Logger, store Store, client *Client, batch int) error {
	words, err := store.ListUnenrichedWords(batch)
	if err != nil {
		return fmt.Errorf("failed to list words for enrichment: %w", err)
	}

	var enriched, failed int
	for _, word := range words {
		if err := ctx.Err(); err != nil {
			return err
		}

		enrichment, err := client.EnrichWord(ctx, word.Term)
		if err != nil {
			logger.Error("failed to enrich word", "term", word.Term, "error", err)
			failed++
			continue
		}
		if err := store.SaveEnrichment(word.ID, enrichment, time.Now()); err != nil {
			logger.Error("failed to save enrichment", "term", word.Term, "error", err)
			failed++
			continue
		}
		enriched++
	}

	logger.Info("enrichment backfill complete", "enriched", enriched, "failed", failed)
	return nil
}
