package offers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoValidURLs is returned when the queue file holds no usable URL
var ErrNoValidURLs = errors.New("no valid offer urls in queue")

// DefaultHeader is written at the top of every queue file
const DefaultHeader = "Paste a single offer url per line. No more, no less."

// DefaultPrefixes are the URL prefixes accepted when none are configured
var DefaultPrefixes = []string{"https://amzn.to/", "https://www.amazon.com.br/"}

// Queue is the plain-text file of offer URLs waiting to be posted.
// The first line is a header for humans; every line containing one of the
// prefixes counts as a URL.
type Queue struct {
	Path     string
	Header   string
	Prefixes []string
}

// NewQueue creates a queue with the default header and prefixes
func NewQueue(path string) *Queue {
	return &Queue{Path: path, Header: DefaultHeader, Prefixes: DefaultPrefixes}
}

// Ensure creates the file with only the header when it does not exist.
// It reports whether the file was created.
func (q *Queue) Ensure() (bool, error) {
	if _, err := os.Stat(q.Path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat queue file: %w", err)
	}

	if err := q.Save(nil); err != nil {
		return false, err
	}
	return true, nil
}

// Valid reports whether line contains an accepted prefix
func (q *Queue) Valid(line string) bool {
	for _, prefix := range q.Prefixes {
		if strings.Contains(line, prefix) {
			return true
		}
	}
	return false
}

// Load returns the trimmed valid lines in file order
func (q *Queue) Load() ([]string, error) {
	data, err := os.ReadFile(q.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}

	var urls []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if q.Valid(line) {
			urls = append(urls, strings.TrimSpace(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan queue file: %w", err)
	}
	return urls, nil
}

// Save rewrites the file as the header followed by one URL per line
func (q *Queue) Save(urls []string) error {
	var b strings.Builder
	if q.Header != "" {
		b.WriteString(strings.TrimRight(q.Header, "\n"))
		b.WriteByte('\n')
	}
	for _, url := range urls {
		b.WriteString(url)
		b.WriteByte('\n')
	}

	if dir := filepath.Dir(q.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create queue directory: %w", err)
		}
	}

	// Write then rename so a crash never leaves a half-written queue
	tmp := q.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	if err := os.Rename(tmp, q.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace queue file: %w", err)
	}
	return nil
}

// Add appends a URL after checking its prefix
func (q *Queue) Add(url string) error {
	url = strings.TrimSpace(url)
	if !q.Valid(url) {
		return fmt.Errorf("url %q does not match any accepted prefix %v", url, q.Prefixes)
	}

	if _, err := q.Ensure(); err != nil {
		return err
	}
	urls, err := q.Load()
	if err != nil {
		return err
	}
	return q.Save(append(urls, url))
}

// Pop removes the first URL and rewrites the file
func (q *Queue) Pop() (string, error) {
	urls, err := q.Load()
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", ErrNoValidURLs
	}
	if err := q.Save(urls[1:]); err != nil {
		return "", err
	}
	return urls[0], nil
}
