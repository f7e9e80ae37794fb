package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestMessageTextPrefersPlain(t *testing.T) {
	raw := crlf(`From: alerts@jobs.example
To: me@example.com
Subject: New job: Backend Engineer
Message-ID: <1@jobs.example>
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Backend Engineer at Acme Corp, Remote
Apply: https://acme.example/1

--b1
Content-Type: text/html; charset=utf-8

<p>ignored html</p>
--b1--
`)
	got, err := MessageText(raw)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer at Acme Corp, Remote\nApply: https://acme.example/1", got)
}

func TestMessageTextHTMLOnly(t *testing.T) {
	raw := crlf(`From: alerts@jobs.example
Subject: Jobs
MIME-Version: 1.0
Content-Type: text/html; charset=utf-8

<html><body><p>SRE at <b>Initech</b>, Austin</p><p><a href="https://initech.example/sre">Apply</a></p></body></html>
`)
	got, err := MessageText(raw)
	require.NoError(t, err)
	assert.Equal(t, "SRE at Initech, Austin\nApply https://initech.example/sre", got)
}

func TestMessageTextEmpty(t *testing.T) {
	_, err := MessageText(nil)
	assert.Error(t, err)
}

func TestNewIMAPSourceDefaults(t *testing.T) {
	s := NewIMAPSource("alerts", IMAPConfig{Addr: "imap.example.com:993"}, discardLogger())
	assert.Equal(t, "INBOX", s.cfg.Mailbox)
	assert.Equal(t, 7, s.cfg.SinceDays)
	assert.Equal(t, 50, s.cfg.Max)
	assert.Equal(t, "imap.example.com", s.tls.ServerName)
}
