package enrich

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		Key:         "test-key",
		BaseURL:     baseURL,
		Model:       "deepseek-chat",
		MaxTokens:   256,
		Temperature: 0.7,
	})
}

// chatReply wraps an enrichment payload in the chat-completion envelope.
func chatReply(t *testing.T, enrichment map[string]string) []byte {
	t.Helper()
	content, err := json.Marshal(enrichment)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": string(content)}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reply
}

func TestEnrichWord(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Write(chatReply(t, map[string]string{
			"phonetic":    "/ɪˈfemərəl/",
			"definition":  "lasting for a very short time",
			"translation": "短暂的",
			"example":     "Fame in the charts is often <b>ephemeral</b>.",
			"mnemonic":    " e-FEM-eral, like a mayfly ",
		}))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).EnrichWord(context.Background(), "ephemeral")
	if err != nil {
		t.Fatalf("EnrichWord error: %v", err)
	}

	if got.Translation != "短暂的" || got.Phonetic != "/ɪˈfemərəl/" {
		t.Errorf("unexpected enrichment: %+v", got)
	}
	if got.Example != "Fame in the charts is often ephemeral." {
		t.Errorf("markup not stripped: %q", got.Example)
	}
	if got.Mnemonic != "e-FEM-eral, like a mayfly" {
		t.Errorf("whitespace not trimmed: %q", got.Mnemonic)
	}

	if captured.Model != "deepseek-chat" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.ResponseFormat.Type != "json_object" {
		t.Errorf("response format = %q, want json_object", captured.ResponseFormat.Type)
	}
	if len(captured.Messages) != 2 || captured.Messages[1].Content != "The word is: ephemeral" {
		t.Errorf("unexpected messages: %+v", captured.Messages)
	}
	if captured.MaxTokens != 256 || captured.Temperature != 0.7 {
		t.Errorf("sampling settings = %d/%v", captured.MaxTokens, captured.Temperature)
	}
}

func TestEnrichWordServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).EnrichWord(context.Background(), "ephemeral")
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "backend down") {
		t.Errorf("error should carry the response body: %v", err)
	}
}

func TestEnrichWordRejectsMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "sorry, no JSON today"}},
			},
		})
		w.Write(reply)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).EnrichWord(context.Background(), "ephemeral"); err == nil {
		t.Fatal("expected an error for non-JSON content")
	}
}

type fakeStore struct {
	words []domain.Word
	saved map[uuid.UUID]domain.Enrichment
}

func (s *fakeStore) ListUnenrichedWords(limit int) ([]domain.Word, error) {
	if limit > len(s.words) {
		limit = len(s.words)
	}
	return s.words[:limit], nil
}

func (s *fakeStore) SaveEnrichment(id uuid.UUID, e domain.Enrichment, at time.Time) error {
	s.saved[id] = e
	return nil
}

func TestBackfillSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if strings.Contains(req.Messages[1].Content, "broken") {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		w.Write(chatReply(t, map[string]string{"definition": "a fine word"}))
	}))
	defer srv.Close()

	good := domain.Word{ID: uuid.New(), Term: "serendipity"}
	broken := domain.Word{ID: uuid.New(), Term: "broken"}
	store := &fakeStore{
		words: []domain.Word{broken, good},
		saved: make(map[uuid.UUID]domain.Enrichment),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := Backfill(context.Background(), logger, store, testClient(srv.URL), 10); err != nil {
		t.Fatalf("Backfill error: %v", err)
	}

	if _, ok := store.saved[good.ID]; !ok {
		t.Error("the good word should have been enriched")
	}
	if _, ok := store.saved[broken.ID]; ok {
		t.Error("the failing word should have been skipped")
	}
}
