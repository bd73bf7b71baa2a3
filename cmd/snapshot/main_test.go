package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesSnapshot_WritesHTMLAndRecords(t *testing.T) {
	fixture, err := os.ReadFile("../../internal/extract/testdata/hltv_matches.html")
	require.NoError(t, err)

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write(fixture)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "matches.html")
	var stdout bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"matches", "--mode", "http", "--base-url", srv.URL, "--out", out, "--parse"})

	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(gotPath, "/stats/teams/matches/"))
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, fixture, written)
	assert.Contains(t, stdout.String(), `NAVI`)
	assert.Contains(t, stdout.String(), `"skipped"`)
}

func TestSnapshot_BlockedPageFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html><title>Just a moment...</title></html>"))
	}))
	defer srv.Close()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"players", "--mode", "http", "--base-url", srv.URL})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anti-bot challenge")
}
