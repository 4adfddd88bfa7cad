package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chat-relay/errors"
)

//go:embed censored/*
var censoredFS embed.FS

// Dictionary carries the loading result including metadata for logging.
type Dictionary struct {
	Words     []string
	Languages []string
}

// Loader reads blacklisted words from embedded per-language files.
type Loader struct {
	fs embed.FS
}

func NewLoader(f embed.FS) *Loader {
	return &Loader{fs: f}
}

// LoadDefault loads the dictionaries shipped with the binary.
func LoadDefault() (*Dictionary, error) {
	return NewLoader(censoredFS).LoadAll("censored")
}

// LoadAll scans the directory, treating each .txt file as one language
// dictionary, and merges their contents into a unique word list.
func (l *Loader) LoadAll(path string) (*Dictionary, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// The filename doubles as the language code ("en.txt" -> "en").
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := l.fs.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &Dictionary{Words: words, Languages: languages}, nil
}
