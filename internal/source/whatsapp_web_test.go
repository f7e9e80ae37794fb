package source

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWhatsAppWebSourceDefaults(t *testing.T) {
	s := NewWhatsAppWebSource("wa", WhatsAppWebConfig{ChannelURL: "https://whatsapp.com/channel/x"}, discardLogger())
	assert.Equal(t, "wa", s.Name())
	assert.Equal(t, 15, s.cfg.MaxScrolls)
	assert.Equal(t, 3*time.Second, s.cfg.ScrollWait)
	assert.NotNil(t, s.cfg.Location)
}

// Needs an installed Chromium and a logged-in profile.
func TestWhatsAppWebLive(t *testing.T) {
	url := os.Getenv("JOBAGG_WHATSAPP_CHANNEL")
	profile := os.Getenv("JOBAGG_WHATSAPP_PROFILE")
	if url == "" || profile == "" {
		t.Skip("JOBAGG_WHATSAPP_CHANNEL and JOBAGG_WHATSAPP_PROFILE not set")
	}
	s := NewWhatsAppWebSource("wa", WhatsAppWebConfig{ChannelURL: url, ProfileDir: profile, Headless: true, MaxScrolls: 2}, discardLogger())
	posts, err := s.FetchPosts(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, posts)
}
