package sync

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fingerprint"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeList(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunSyncReconcilesLocalSource(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	deck := domain.Deck{ID: uuid.New(), Name: "imported", CreatedAt: time.Now()}
	if err := db.InsertDeck(deck); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	sourceID, err := db.InsertSource(dir, "local", deck.ID)
	if err != nil {
		t.Fatal(err)
	}

	writeList(t, dir, "words.md", `W: serendipity
D: a happy accident
T: 机缘巧合
---
W: ephemeral
D: lasting a very short time
`)
	writeList(t, dir, "notes.txt", "not a word list, must be ignored")

	if err := RunSync(db, discardLogger(), t.TempDir()); err != nil {
		t.Fatalf("RunSync error: %v", err)
	}

	words, err := db.ListWordsBySource(sourceID)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 {
		t.Fatalf("imported %d words, want 2", len(words))
	}

	hash := fingerprint.Hash(domain.WordEntry{
		Term:        "serendipity",
		Definition:  "a happy accident",
		Translation: "机缘巧合",
	})
	imported, err := db.FindWordByHash(deck.ID, hash)
	if err != nil {
		t.Fatalf("imported word not found by hash: %v", err)
	}
	if imported.SourceID == nil || *imported.SourceID != sourceID {
		t.Errorf("SourceID = %v, want %d", imported.SourceID, sourceID)
	}

	// A second run must not duplicate anything.
	if err := RunSync(db, discardLogger(), t.TempDir()); err != nil {
		t.Fatalf("second RunSync error: %v", err)
	}
	words, err = db.ListWordsBySource(sourceID)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 {
		t.Fatalf("after rerun have %d words, want 2", len(words))
	}

	// Dropping an entry from the file removes its word on the next run.
	writeList(t, dir, "words.md", `W: serendipity
D: a happy accident
T: 机缘巧合
`)
	if err := RunSync(db, discardLogger(), t.TempDir()); err != nil {
		t.Fatalf("third RunSync error: %v", err)
	}
	words, err = db.ListWordsBySource(sourceID)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 1 || words[0].Term != "serendipity" {
		t.Fatalf("after removal have %v, want just serendipity", words)
	}

	source, err := db.FindSourceByPath(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !source.LastScanned.Valid {
		t.Error("LastScanned should be stamped after a sync")
	}
}

func TestRunSyncKeepsManualWords(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	deck := domain.Deck{ID: uuid.New(), Name: "mixed", CreatedAt: time.Now()}
	if err := db.InsertDeck(deck); err != nil {
		t.Fatal(err)
	}

	// A word added by hand, not owned by any source.
	manual := domain.Word{
		ID:        uuid.New(),
		DeckID:    deck.ID,
		Term:      "handmade",
		Hash:      "hash-handmade",
		CreatedAt: time.Now(),
	}
	if err := db.InsertWordWithCard(manual, fsrs.NewCard(uuid.New(), time.Now())); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	if _, err := db.InsertSource(dir, "local", deck.ID); err != nil {
		t.Fatal(err)
	}
	writeList(t, dir, "words.md", "W: imported\nD: came from a file\n")

	if err := RunSync(db, discardLogger(), t.TempDir()); err != nil {
		t.Fatalf("RunSync error: %v", err)
	}

	// The manual word survives reconciliation even though it is not in
	// any source file.
	if _, err := db.GetWord(manual.ID); err != nil {
		t.Errorf("manual word was deleted by sync: %v", err)
	}
}

func TestGitUrlToLocalPath(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "https url",
			url:  "https://github.com/example/words.git",
			want: filepath.Join("base", "github.com", "example", "words"),
		},
		{
			name: "scp-like ssh url",
			url:  "git@github.com:example/words.git",
			want: filepath.Join("base", "github.com", "example", "words"),
		},
		{
			name:    "plain path",
			url:     "/srv/words",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gitUrlToLocalPath("base", tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("gitUrlToLocalPath(%q) error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("gitUrlToLocalPath(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestRunSyncWithNoSources(t *testing.T) {
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := RunSync(db, discardLogger(), t.TempDir()); err != nil {
		t.Errorf("RunSync with no sources should be a no-op, got %v", err)
	}
}
