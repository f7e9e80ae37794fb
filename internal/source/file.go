// Package source holds the channels raw posts are read from.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amishk599/jobagg/internal/model"
	"github.com/amishk599/jobagg/internal/retry"
)

// FileSource reads posts from a text file, or from every *.txt file in a
// directory. Posts are separated by a line holding only "---", or by one or
// more blank lines when the file has no such separator.
type FileSource struct {
	name string
	path string
}

var _ model.Source = (*FileSource)(nil)

// NewFileSource creates a source reading path.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (s *FileSource) Name() string { return s.name }

// FetchPosts reads and splits the configured file(s). A missing path is a
// permanent failure.
func (s *FileSource) FetchPosts(ctx context.Context) ([]model.RawPost, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("file source %s: %w", s.name, err))
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(s.path, "*.txt"))
		if err != nil {
			return nil, retry.Permanent(fmt.Errorf("file source %s: %w", s.name, err))
		}
		sort.Strings(files)
	}

	var posts []model.RawPost
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := s.readFile(path)
		if err != nil {
			return nil, err
		}
		posts = append(posts, got...)
	}
	return posts, nil
}

func (s *FileSource) readFile(path string) ([]model.RawPost, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file source %s: %w", s.name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("file source %s: %w", s.name, err)
	}

	blocks, err := SplitPosts(f)
	if err != nil {
		return nil, fmt.Errorf("file source %s: reading %s: %w", s.name, path, err)
	}

	base := filepath.Base(path)
	posts := make([]model.RawPost, 0, len(blocks))
	for i, text := range blocks {
		posts = append(posts, model.RawPost{
			Source:    s.name,
			ID:        fmt.Sprintf("%s#%d", base, i+1),
			Text:      text,
			Timestamp: info.ModTime(),
		})
	}
	return posts, nil
}

// SplitPosts splits r into trimmed, non-empty blocks. When any line is
// exactly "---" only those lines separate posts, so multi-paragraph posts
// survive; otherwise blank lines do.
func SplitPosts(r io.Reader) ([]string, error) {
	var lines []string
	hasRule := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "---" {
			hasRule = true
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	isSep := func(line string) bool {
		if hasRule {
			return strings.TrimSpace(line) == "---"
		}
		return strings.TrimSpace(line) == ""
	}

	var blocks []string
	var cur []string
	flush := func() {
		if text := strings.TrimSpace(strings.Join(cur, "\n")); text != "" {
			blocks = append(blocks, text)
		}
		cur = cur[:0]
	}
	for _, line := range lines {
		if isSep(line) {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return blocks, nil
}
