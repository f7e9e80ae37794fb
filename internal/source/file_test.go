package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPosts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "blank lines",
			in:   "Go dev at Acme, Remote\n\n\nSRE at Initech, Austin\n",
			want: []string{"Go dev at Acme, Remote", "SRE at Initech, Austin"},
		},
		{
			name: "rules keep paragraphs together",
			in:   "Company: Acme\n\nRole: Go dev\n---\nSRE at Initech\n---\n",
			want: []string{"Company: Acme\n\nRole: Go dev", "SRE at Initech"},
		},
		{
			name: "crlf and surrounding space",
			in:   "  first  \r\n\r\nsecond\r\n",
			want: []string{"first", "second"},
		},
		{name: "empty", in: "\n\n", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitPosts(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("third\n\nfourth"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first\n\nsecond"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	posts, err := NewFileSource("local", dir).FetchPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 4)

	var texts []string
	for _, p := range posts {
		texts = append(texts, p.Text)
		assert.Equal(t, "local", p.Source)
		assert.False(t, p.Timestamp.IsZero())
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, texts)
	assert.Equal(t, "a.txt#1", posts[0].ID)
	assert.Equal(t, "b.txt#2", posts[3].ID)
}

func TestFileSourceMissingPath(t *testing.T) {
	_, err := NewFileSource("local", filepath.Join(t.TempDir(), "nope.txt")).FetchPosts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
