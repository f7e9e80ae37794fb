package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Jobs","username":"jobs_bot"}}`

const updatesResponse = `{"ok":true,"result":[
 {"update_id":10,"channel_post":{"message_id":5,"date":1718000000,"chat":{"id":-1001,"type":"channel","title":"Jobs","username":"jobsfeed"},"text":"Senior Backend Engineer at Acme Corp, Remote"}},
 {"update_id":11,"channel_post":{"message_id":6,"date":1718000100,"chat":{"id":-1002,"type":"channel","title":"Other","username":"memes"},"text":"not a job"}},
 {"update_id":12,"channel_post":{"message_id":7,"date":1718000200,"chat":{"id":-1001,"type":"channel","title":"Jobs","username":"jobsfeed"},"caption":"Globex is hiring a Data Analyst"}},
 {"update_id":13,"channel_post":{"message_id":8,"date":1718000300,"chat":{"id":-1001,"type":"channel","title":"Jobs","username":"jobsfeed"}}}
]}`

// fakeBotAPI serves getMe and getUpdates and records the offsets requested.
func fakeBotAPI(t *testing.T, updates string) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, getMeResponse)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			r.ParseForm()
			mu.Lock()
			offsets = append(offsets, r.Form.Get("offset"))
			mu.Unlock()
			fmt.Fprint(w, updates)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), offsets...)
	}
}

func TestTelegramSourceFiltersChats(t *testing.T) {
	srv, offsets := fakeBotAPI(t, updatesResponse)
	src := NewTelegramSource("telegram", "TOKEN", []string{"@JobsFeed"}, srv.URL+"/bot%s/%s", srv.Client(), discardLogger())

	posts, err := src.FetchPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "-1001:5", posts[0].ID)
	assert.Equal(t, "Senior Backend Engineer at Acme Corp, Remote", posts[0].Text)
	assert.Equal(t, time.Unix(1718000000, 0), posts[0].Timestamp)
	assert.Equal(t, "Globex is hiring a Data Analyst", posts[1].Text)
	assert.Equal(t, "telegram", posts[1].Source)

	_, err = src.FetchPosts(context.Background())
	require.NoError(t, err)
	got := offsets()
	require.Len(t, got, 2)
	assert.Equal(t, "14", got[1], "second poll should confirm processed updates")
}

func TestTelegramSourceNoChatFilter(t *testing.T) {
	srv, _ := fakeBotAPI(t, updatesResponse)
	src := NewTelegramSource("telegram", "TOKEN", nil, srv.URL+"/bot%s/%s", srv.Client(), discardLogger())

	posts, err := src.FetchPosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestTelegramSourceAPIError(t *testing.T) {
	srv, _ := fakeBotAPI(t, `{"ok":false,"error_code":409,"description":"Conflict: webhook is active"}`)
	src := NewTelegramSource("telegram", "TOKEN", nil, srv.URL+"/bot%s/%s", srv.Client(), discardLogger())

	_, err := src.FetchPosts(context.Background())
	assert.Error(t, err)
}

func TestTelegramSourceStopsWaitingOnCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			fmt.Fprint(w, getMeResponse)
			return
		}
		<-release
		fmt.Fprint(w, updatesResponse)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	src := NewTelegramSource("telegram", "TOKEN", nil, srv.URL+"/bot%s/%s", srv.Client(), discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	posts, err := src.FetchPosts(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, posts)
	assert.Less(t, time.Since(start), 2*time.Second)
}
