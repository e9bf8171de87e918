package wordlist

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
)

// Word-list files are markdown with prefixed lines:
//
//	W: ephemeral
//	P: /ɪˈfem.ər.əl/
//	D: lasting a very short time
//	T: 短暂的
//	E: Fame in that industry is ephemeral.
//	M: "e-FEMORAL" - gone before you notice
//	---
//
// A field body may continue over following unprefixed lines. A new W: or a
// --- separator closes the current entry.
const (
	termPrefix        = "W:"
	phoneticPrefix    = "P:"
	definitionPrefix  = "D:"
	translationPrefix = "T:"
	examplePrefix     = "E:"
	mnemonicPrefix    = "M:"
)

type state int

const (
	seeking state = iota
	readingTerm
	readingPhonetic
	readingDefinition
	readingTranslation
	readingExample
	readingMnemonic
)

var prefixStates = []struct {
	prefix string
	next   state
}{
	{termPrefix, readingTerm},
	{phoneticPrefix, readingPhonetic},
	{definitionPrefix, readingDefinition},
	{translationPrefix, readingTranslation},
	{examplePrefix, readingExample},
	{mnemonicPrefix, readingMnemonic},
}

// ParseFile reads a word-list file from the given path and extracts all entries.
func ParseFile(path string) ([]domain.WordEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all word entries.
func Parse(r io.Reader) ([]domain.WordEntry, error) {
	scanner := bufio.NewScanner(r)
	var entries []domain.WordEntry
	var current domain.WordEntry
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingTerm:
			current.Term = content
		case readingPhonetic:
			current.Phonetic = content
		case readingDefinition:
			current.Definition = content
		case readingTranslation:
			current.Translation = content
		case readingExample:
			current.Example = content
		case readingMnemonic:
			current.Mnemonic = content
		}
		currentBlock = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Term != "" {
			entries = append(entries, current)
		}
		current = domain.WordEntry{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		matched := false
		for _, ps := range prefixStates {
			if !strings.HasPrefix(line, ps.prefix) {
				continue
			}
			flushBlock()
			if ps.next == readingTerm && currentState != seeking {
				// A new term always starts a new entry.
				finishEntry()
			}
			currentState = ps.next
			content := line[len(ps.prefix):]
			if strings.HasPrefix(content, " ") {
				content = content[1:]
			}
			currentBlock = append(currentBlock, content)
			matched = true
			break
		}

		if !matched && currentState != seeking {
			currentBlock = append(currentBlock, line)
		}
	}

	finishEntry() // finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
