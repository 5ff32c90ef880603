package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyList is returned when a list contains no candidates.
var ErrEmptyList = errors.New("word list is empty")

// maxLineSize is the longest line accepted in a list.
const maxLineSize = 1024 * 1024

// Read returns the candidates in r in source order.
func Read(r io.Reader) ([]string, error) {
	var words []string
	err := Each(r, func(word string) bool {
		words = append(words, word)
		return true
	})
	return words, err
}

// Each calls fn for every candidate in r until fn returns false.
func Each(r io.Reader, fn func(word string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		if !fn(word) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read word list: %w", err)
	}
	return nil
}

// ReadFile opens path and returns its candidates. The file is closed before
// ReadFile returns. An empty list is reported as ErrEmptyList.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer f.Close()

	words, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyList)
	}
	return words, nil
}
