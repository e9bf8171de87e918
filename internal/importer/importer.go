// Package importer loads vocabulary from spreadsheet files. Both formats
// share the same fixed column order: term, phonetic, definition,
// translation, example, mnemonic. The first row is a header and is skipped.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fingerprint"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
)

// Store is the slice of persistence an import needs.
type Store interface {
	FindWordByHash(deckID uuid.UUID, hash string) (domain.Word, error)
	InsertWordWithCard(word domain.Word, card fsrs.Card) error
}

// Result tallies one import run. Errors holds row-level problems; a bad row
// never aborts the rest of the file.
type Result struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportXLSX reads the first sheet of an Excel workbook into a deck.
func ImportXLSX(r io.Reader, store Store, deckID uuid.UUID, now time.Time) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Result{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	return importRows(rows, store, deckID, now)
}

// ImportCSV reads comma-separated vocabulary into a deck.
func ImportCSV(r io.Reader, store Store, deckID uuid.UUID, now time.Time) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may leave trailing columns off

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read CSV: %w", err)
	}

	return importRows(rows, store, deckID, now)
}

func importRows(rows [][]string, store Store, deckID uuid.UUID, now time.Time) (Result, error) {
	var result Result
	if len(rows) <= 1 {
		return result, nil
	}

	for i, row := range rows[1:] {
		line := i + 2 // 1-based, after the header

		entry := domain.WordEntry{
			Term:        field(row, 0),
			Phonetic:    field(row, 1),
			Definition:  field(row, 2),
			Translation: field(row, 3),
			Example:     field(row, 4),
			Mnemonic:    field(row, 5),
		}
		if entry.Term == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: missing term", line))
			continue
		}

		hash := fingerprint.Hash(entry)
		_, err := store.FindWordByHash(deckID, hash)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		word := domain.Word{
			ID:          uuid.New(),
			DeckID:      deckID,
			Term:        entry.Term,
			Phonetic:    entry.Phonetic,
			Definition:  entry.Definition,
			Translation: entry.Translation,
			Example:     entry.Example,
			Mnemonic:    entry.Mnemonic,
			Hash:        hash,
			CreatedAt:   now,
		}
		if err := store.InsertWordWithCard(word, fsrs.NewCard(uuid.New(), now)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		result.Created++
	}

	return result, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
