// Package runtime holds the single-owner registries of the presence core and the loop that serializes them.
package runtime

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"officepulse/errors"
)

//go:embed keywords/*
var keywordsFolder embed.FS

const (
	greetingsList = "greetings"
	topicsList    = "topics"
)

// KeywordData carries the lists read from the keyword folder, keyed by file name without extension.
type KeywordData struct {
	Lists map[string][]string
}

func (d *KeywordData) Greetings() []string { return d.Lists[greetingsList] }
func (d *KeywordData) Topics() []string    { return d.Lists[topicsList] }

// KeywordLoader reads keyword lists from an embedded filesystem.
type KeywordLoader struct {
	fs fs.FS
}

func NewKeywordLoader(f fs.FS) *KeywordLoader {
	return &KeywordLoader{fs: f}
}

// DefaultKeywords loads the greeting and topic lists shipped with the binary.
func DefaultKeywords() (*KeywordData, error) {
	return NewKeywordLoader(keywordsFolder).LoadAll("keywords")
}

// LoadAll parses every .txt file under path. One keyword or phrase per line, duplicates dropped,
// file order kept.
func (l *KeywordLoader) LoadAll(path string) (*KeywordData, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	lists := make(map[string][]string)
	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := fs.ReadFile(l.fs, path+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{})
		var words []string
		// Use a scanner to handle different line endings (\n vs \r\n) correctly
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		lists[strings.TrimSuffix(entry.Name(), ".txt")] = words
		total += len(words)
	}

	if total == 0 {
		return nil, errors.ErrEmptyWords
	}
	return &KeywordData{Lists: lists}, nil
}
