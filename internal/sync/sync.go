// Package sync reconciles word-list sources with the database: new entries
// are inserted, entries that vanished from their files are removed.
package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fingerprint"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/gitsource"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/wordlist"
)

// RunSync iterates over all sources and reconciles each one. Git sources
// are mirrored under reposDir before scanning. One broken source does not
// stop the others.
func RunSync(db *storage.DB, logger *slog.Logger, reposDir string) error {
	logger.Info("starting sync for all sources")

	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		logger.Info("no sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return fmt.Errorf("failed to create sources directory %s: %w", reposDir, err)
	}

	for _, source := range sources {
		logger.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanDir := source.Path
		if source.Type == "git" {
			localPath, err := gitUrlToLocalPath(reposDir, source.Path)
			if err != nil {
				logger.Error("failed to determine local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(logger, source.Path, localPath); err != nil {
				logger.Error("failed to sync git repo", "url", source.Path, "error", err)
				continue
			}
			scanDir = localPath
		}

		reconcileSource(db, logger, source, scanDir)
	}

	logger.Info("sync complete")
	return nil
}

// reconcileSource walks a directory of .md word lists and makes the
// database match: unseen entries are inserted into the source's deck,
// previously imported entries that are gone from the files are deleted.
// Review history is never touched.
func reconcileSource(db *storage.DB, logger *slog.Logger, source storage.Source, dir string) {
	now := time.Now()
	foundHashes := make(map[string]bool)
	var created int
	var problems []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := wordlist.ParseFile(path)
		if parseErr != nil {
			problems = append(problems, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}

		for _, entry := range entries {
			hash := fingerprint.Hash(entry)
			foundHashes[hash] = true

			_, findErr := db.FindWordByHash(source.DeckID, hash)
			if findErr == nil {
				continue
			}
			if !errors.Is(findErr, storage.ErrNotFound) {
				problems = append(problems, fmt.Errorf("looking up %q: %w", entry.Term, findErr))
				continue
			}

			logger.Info("new word found, inserting", "term", entry.Term, "file", d.Name())
			word := wordFromEntry(entry, source, hash, now)
			if insertErr := db.InsertWordWithCard(word, fsrs.NewCard(uuid.New(), now)); insertErr != nil {
				problems = append(problems, fmt.Errorf("inserting %q: %w", entry.Term, insertErr))
				continue
			}
			created++
		}
		return nil
	})
	if walkErr != nil {
		logger.Error("failed to walk source directory", "path", dir, "error", walkErr)
		return
	}

	imported, err := db.ListWordsBySource(source.ID)
	if err != nil {
		logger.Error("failed to list words for source", "source_id", source.ID, "error", err)
		return
	}

	var orphaned int
	for _, word := range imported {
		if foundHashes[word.Hash] {
			continue
		}
		logger.Info("word vanished from source, deleting", "term", word.Term)
		if err := db.DeleteWord(word.ID); err != nil {
			logger.Warn("failed to delete orphaned word", "term", word.Term, "error", err)
			continue
		}
		orphaned++
	}

	if err := db.UpdateSourceLastScanned(source.ID, now); err != nil {
		logger.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	logger.Info("reconciliation complete",
		"path", dir,
		"words_found", len(foundHashes),
		"created", created,
		"orphaned_deleted", orphaned,
		"errors", len(problems),
	)
	for _, problem := range problems {
		logger.Warn("sync problem", "error", problem)
	}
}

func wordFromEntry(entry domain.WordEntry, source storage.Source, hash string, now time.Time) domain.Word {
	sourceID := source.ID
	return domain.Word{
		ID:          uuid.New(),
		DeckID:      source.DeckID,
		Term:        entry.Term,
		Phonetic:    entry.Phonetic,
		Definition:  entry.Definition,
		Translation: entry.Translation,
		Example:     entry.Example,
		Mnemonic:    entry.Mnemonic,
		Hash:        hash,
		SourceID:    &sourceID,
		CreatedAt:   now,
	}
}

func gitUrlToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// Try the scp-like form: git@host:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
