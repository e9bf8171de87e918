// Package web exposes the application over a JSON HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/enrich"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fingerprint"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/importer"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/session"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/stats"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/sync"
)

// statsWindow bounds how far back the stats endpoint reads review history.
const statsWindow = 365 * 24 * time.Hour

// Server holds the dependencies for the HTTP server.
type Server struct {
	db      *storage.DB
	session *session.Service
	enrich  *enrich.Client // nil when no API key is configured
	logger  *slog.Logger
	router  *http.ServeMux
	syncDir string
}

// NewServer creates and configures a new server. Pass a nil enrich client
// to disable the on-demand enrichment endpoint.
func NewServer(db *storage.DB, svc *session.Service, enrichClient *enrich.Client, logger *slog.Logger, syncDir string) *Server {
	s := &Server{
		db:      db,
		session: svc,
		enrich:  enrichClient,
		logger:  logger,
		router:  http.NewServeMux(),
		syncDir: syncDir,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth())

	s.router.HandleFunc("/api/decks", s.handleDecks())
	s.router.HandleFunc("/api/decks/", s.handleDeckByID())

	s.router.HandleFunc("/api/words", s.handlePostWord())
	s.router.HandleFunc("/api/words/", s.handleWordAction())
	s.router.HandleFunc("/api/import", s.handleImport())

	s.router.HandleFunc("/api/review/next", s.handleNextReview())
	s.router.HandleFunc("/api/review/queue", s.handleReviewQueue())
	s.router.HandleFunc("/api/review/previews/", s.handlePreviews())
	s.router.HandleFunc("/api/review/", s.handlePostReview())

	s.router.HandleFunc("/api/stats", s.handleStats())

	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
	s.router.HandleFunc("/api/data", s.handleResetData())
}

// --- responses ---

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, map[string]string{"error": message})
}

// fail logs an unexpected error and answers with a generic 500.
func (s *Server) fail(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, "error", err)
	s.respondError(w, http.StatusInternalServerError, "internal server error")
}

// cardPayload is how a card and its word travel to the client together.
type cardPayload struct {
	Card fsrs.Card   `json:"card"`
	Word domain.Word `json:"word"`
}

func toCardPayload(c storage.CardWithWord) cardPayload {
	return cardPayload{Card: c.Card, Word: c.Word}
}

// deckParam reads an optional ?deck=<uuid> filter. uuid.Nil means all decks.
func deckParam(r *http.Request) (uuid.UUID, error) {
	value := r.URL.Query().Get("deck")
	if value == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(value)
}

// --- health ---

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// --- decks ---

func (s *Server) handleDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			decks, err := s.db.ListDecks()
			if err != nil {
				s.fail(w, "failed to list decks", err)
				return
			}
			s.respond(w, http.StatusOK, decks)

		case http.MethodPost:
			var req struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			req.Name = strings.TrimSpace(req.Name)
			if req.Name == "" {
				s.respondError(w, http.StatusBadRequest, "deck name cannot be empty")
				return
			}

			deck := domain.Deck{
				ID:          uuid.New(),
				Name:        req.Name,
				Description: strings.TrimSpace(req.Description),
				CreatedAt:   time.Now(),
			}
			if err := s.db.InsertDeck(deck); err != nil {
				s.fail(w, "failed to insert deck", err)
				return
			}
			s.respond(w, http.StatusCreated, deck)

		default:
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// handleDeckByID serves DELETE /api/decks/{id} and GET /api/decks/{id}/words.
func (s *Server) handleDeckByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/decks/")
		parts := strings.Split(rest, "/")

		deckID, err := uuid.Parse(parts[0])
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid deck ID")
			return
		}
		if _, err := s.db.GetDeck(deckID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "deck not found")
				return
			}
			s.fail(w, "failed to get deck", err)
			return
		}

		switch {
		case len(parts) == 1 && r.Method == http.MethodDelete:
			if err := s.db.DeleteDeck(deckID); err != nil {
				s.fail(w, "failed to delete deck", err)
				return
			}
			s.logger.Info("deck deleted", "deck", deckID)
			s.respond(w, http.StatusNoContent, nil)

		case len(parts) == 2 && parts[1] == "words" && r.Method == http.MethodGet:
			words, err := s.db.ListWordsByDeck(deckID)
			if err != nil {
				s.fail(w, "failed to list words", err)
				return
			}
			s.respond(w, http.StatusOK, words)

		default:
			http.NotFound(w, r)
		}
	}
}

// --- words ---

func (s *Server) handlePostWord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req struct {
			DeckID      uuid.UUID `json:"deckId"`
			Term        string    `json:"term"`
			Phonetic    string    `json:"phonetic"`
			Definition  string    `json:"definition"`
			Translation string    `json:"translation"`
			Example     string    `json:"example"`
			Mnemonic    string    `json:"mnemonic"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.Term = strings.TrimSpace(req.Term)
		if req.Term == "" {
			s.respondError(w, http.StatusBadRequest, "term cannot be empty")
			return
		}

		if _, err := s.db.GetDeck(req.DeckID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "deck not found")
				return
			}
			s.fail(w, "failed to get deck", err)
			return
		}

		entry := domain.WordEntry{
			Term:        req.Term,
			Phonetic:    req.Phonetic,
			Definition:  req.Definition,
			Translation: req.Translation,
			Example:     req.Example,
			Mnemonic:    req.Mnemonic,
		}
		hash := fingerprint.Hash(entry)

		if _, err := s.db.FindWordByHash(req.DeckID, hash); err == nil {
			s.respondError(w, http.StatusConflict, "word already in deck")
			return
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.fail(w, "failed to check for duplicate word", err)
			return
		}

		now := time.Now()
		word := domain.Word{
			ID:          uuid.New(),
			DeckID:      req.DeckID,
			Term:        req.Term,
			Phonetic:    strings.TrimSpace(req.Phonetic),
			Definition:  strings.TrimSpace(req.Definition),
			Translation: strings.TrimSpace(req.Translation),
			Example:     strings.TrimSpace(req.Example),
			Mnemonic:    strings.TrimSpace(req.Mnemonic),
			Hash:        hash,
			CreatedAt:   now,
		}
		if err := s.db.InsertWordWithCard(word, fsrs.NewCard(uuid.New(), now)); err != nil {
			s.fail(w, "failed to insert word", err)
			return
		}

		// Enrich inline when a client is configured. A failure is logged and
		// left for the nightly backfill; the word itself is already saved.
		if s.enrich != nil {
			if enrichment, err := s.enrich.EnrichWord(r.Context(), word.Term); err != nil {
				s.logger.Warn("failed to enrich new word", "term", word.Term, "error", err)
			} else if err := s.db.SaveEnrichment(word.ID, enrichment, time.Now()); err != nil {
				s.logger.Warn("failed to save enrichment", "term", word.Term, "error", err)
			} else if updated, err := s.db.GetWord(word.ID); err == nil {
				word = updated
			}
		}

		s.respond(w, http.StatusCreated, word)
	}
}

// handleWordAction serves POST /api/words/{id}/familiar and
// POST /api/words/{id}/enrich.
func (s *Server) handleWordAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/api/words/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		wordID, err := uuid.Parse(parts[0])
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid word ID")
			return
		}

		switch parts[1] {
		case "familiar":
			s.markFamiliar(w, r, wordID)
		case "enrich":
			s.enrichNow(w, r, wordID)
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) markFamiliar(w http.ResponseWriter, r *http.Request, wordID uuid.UUID) {
	var req struct {
		Familiar bool `json:"familiar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.db.SetWordFamiliar(wordID, req.Familiar); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "word not found")
			return
		}
		s.fail(w, "failed to set familiar", err)
		return
	}

	word, err := s.db.GetWord(wordID)
	if err != nil {
		s.fail(w, "failed to reload word", err)
		return
	}
	s.respond(w, http.StatusOK, word)
}

func (s *Server) enrichNow(w http.ResponseWriter, r *http.Request, wordID uuid.UUID) {
	if s.enrich == nil {
		s.respondError(w, http.StatusServiceUnavailable, "enrichment is not configured")
		return
	}

	word, err := s.db.GetWord(wordID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "word not found")
			return
		}
		s.fail(w, "failed to get word", err)
		return
	}

	enrichment, err := s.enrich.EnrichWord(r.Context(), word.Term)
	if err != nil {
		s.fail(w, "failed to enrich word", err)
		return
	}
	if err := s.db.SaveEnrichment(wordID, enrichment, time.Now()); err != nil {
		s.fail(w, "failed to save enrichment", err)
		return
	}

	word, err = s.db.GetWord(wordID)
	if err != nil {
		s.fail(w, "failed to reload word", err)
		return
	}
	s.respond(w, http.StatusOK, word)
}

// handleImport serves POST /api/import: a multipart upload with a "file"
// part (.xlsx or .csv) and a "deck" field.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		deckID, err := uuid.Parse(r.FormValue("deck"))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid deck ID")
			return
		}
		if _, err := s.db.GetDeck(deckID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "deck not found")
				return
			}
			s.fail(w, "failed to get deck", err)
			return
		}

		upload, header, err := r.FormFile("file")
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "missing file upload")
			return
		}
		defer upload.Close()

		var result importer.Result
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".xlsx":
			result, err = importer.ImportXLSX(upload, s.db, deckID, time.Now())
		case ".csv":
			result, err = importer.ImportCSV(upload, s.db, deckID, time.Now())
		default:
			s.respondError(w, http.StatusBadRequest, "unsupported file type, use .xlsx or .csv")
			return
		}
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		s.logger.Info("import complete",
			"file", header.Filename,
			"deck", deckID,
			"created", result.Created,
			"skipped", result.Skipped,
			"errors", len(result.Errors),
		)
		s.respond(w, http.StatusOK, result)
	}
}

// --- reviews ---

func (s *Server) handleNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		deckID, err := deckParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid deck ID")
			return
		}

		next, err := s.session.NextCard(deckID, time.Now())
		if errors.Is(err, session.ErrNoCards) {
			s.respond(w, http.StatusNoContent, nil)
			return
		}
		if err != nil {
			s.fail(w, "failed to pick next card", err)
			return
		}
		s.respond(w, http.StatusOK, toCardPayload(next))
	}
}

func (s *Server) handleReviewQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		deckID, err := deckParam(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid deck ID")
			return
		}

		queue, err := s.session.Queue(deckID, time.Now())
		if err != nil {
			s.fail(w, "failed to build review queue", err)
			return
		}

		payload := make([]cardPayload, 0, len(queue))
		for _, item := range queue {
			payload = append(payload, toCardPayload(item))
		}
		s.respond(w, http.StatusOK, payload)
	}
}

// handlePostReview serves POST /api/review/{cardID} with {"rating": 1..4}.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		cardID, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/review/"))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid card ID")
			return
		}

		var req struct {
			Rating int `json:"rating"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		card, log, err := s.session.SubmitReview(cardID, req.Rating, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, fsrs.ErrInvalidRating):
				s.respondError(w, http.StatusBadRequest, "rating must be between 1 and 4")
			case errors.Is(err, storage.ErrNotFound):
				s.respondError(w, http.StatusNotFound, "card not found")
			default:
				s.fail(w, "failed to submit review", err)
			}
			return
		}

		s.respond(w, http.StatusOK, map[string]any{"card": card, "log": log})
	}
}

// handlePreviews serves GET /api/review/previews/{cardID}: what each rating
// would do, without persisting anything.
func (s *Server) handlePreviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		cardID, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/review/previews/"))
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid card ID")
			return
		}

		previews, err := s.session.Previews(cardID, time.Now())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.respondError(w, http.StatusNotFound, "card not found")
				return
			}
			s.fail(w, "failed to build previews", err)
			return
		}
		s.respond(w, http.StatusOK, previews)
	}
}

// --- stats ---

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		now := time.Now()
		logs, err := s.db.ListLogsSince(now.Add(-statsWindow))
		if err != nil {
			s.fail(w, "failed to load review history", err)
			return
		}
		states, err := s.db.CountCardsByState(uuid.Nil)
		if err != nil {
			s.fail(w, "failed to count card states", err)
			return
		}
		queue, err := s.db.CountQueue(uuid.Nil, now)
		if err != nil {
			s.fail(w, "failed to count queues", err)
			return
		}

		s.respond(w, http.StatusOK, map[string]any{
			"summary": stats.Compute(logs, now),
			"states":  states,
			"queue":   queue,
		})
	}
}

// --- sources and sync ---

type sourceResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	DeckID      uuid.UUID  `json:"deckId"`
	LastScanned *time.Time `json:"lastScanned,omitempty"`
}

func toSourceResponse(src storage.Source) sourceResponse {
	resp := sourceResponse{ID: src.ID, Path: src.Path, Type: src.Type, DeckID: src.DeckID}
	if src.LastScanned.Valid {
		t := src.LastScanned.Time
		resp.LastScanned = &t
	}
	return resp
}

func (s *Server) listSources(w http.ResponseWriter) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		s.fail(w, "failed to get sources", err)
		return
	}
	payload := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		payload = append(payload, toSourceResponse(src))
	}
	s.respond(w, http.StatusOK, payload)
}

func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listSources(w)

		case http.MethodPost:
			var req struct {
				Path   string    `json:"path"`
				DeckID uuid.UUID `json:"deckId"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			req.Path = strings.TrimSpace(req.Path)
			if req.Path == "" {
				s.respondError(w, http.StatusBadRequest, "path cannot be empty")
				return
			}
			if _, err := s.db.GetDeck(req.DeckID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					s.respondError(w, http.StatusNotFound, "deck not found")
					return
				}
				s.fail(w, "failed to get deck", err)
				return
			}

			sourceType := "local"
			if strings.HasSuffix(req.Path, ".git") || strings.HasPrefix(req.Path, "git@") || strings.HasPrefix(req.Path, "https://") {
				sourceType = "git"
			}

			id, err := s.db.InsertSource(req.Path, sourceType, req.DeckID)
			if err != nil {
				s.fail(w, "failed to insert source", err)
				return
			}
			source, err := s.db.FindSourceByPath(req.Path)
			if err != nil {
				s.fail(w, "failed to reload source", err)
				return
			}
			s.logger.Info("source added", "id", id, "type", sourceType, "path", req.Path)
			s.respond(w, http.StatusCreated, toSourceResponse(source))

		default:
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid source ID")
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			s.fail(w, "failed to delete source", err)
			return
		}
		s.listSources(w)
	}
}

// handlePostSync triggers a sync in the foreground so the caller sees the
// reconciled source list in the response.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := sync.RunSync(s.db, s.logger, s.syncDir); err != nil {
			s.fail(w, "sync failed", err)
			return
		}
		s.listSources(w)
	}
}

// handleResetData serves DELETE /api/data: the bulk reset that wipes decks,
// words, cards and review history.
func (s *Server) handleResetData() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := s.db.ResetData(); err != nil {
			s.fail(w, "failed to reset data", err)
			return
		}
		s.logger.Info("all data wiped by request")
		s.respond(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}
