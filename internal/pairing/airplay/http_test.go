package airplay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPairSetupHeadersAndBody(t *testing.T) {
	var gotPath, gotUserAgent, gotHKP, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUserAgent = r.Header.Get("User-Agent")
		gotHKP = r.Header.Get("X-Apple-HKP")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte{0x06, 0x01, 0x04})
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	c := New(u.Hostname(), port)
	resp, err := c.SendPairSetup(context.Background(), []byte{0x00, 0x01, 0x00, 0x06, 0x01, 0x01})
	require.NoError(t, err)

	assert.Equal(t, "/pair-setup", gotPath)
	assert.Equal(t, userAgent, gotUserAgent)
	assert.Equal(t, hkpVersion, gotHKP)
	assert.Equal(t, "application/octet-stream", gotContentType)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0x06, 0x01, 0x01}, gotBody)
	assert.Equal(t, []byte{0x06, 0x01, 0x04}, resp)
}

func TestStartPINPostsEmptyBody(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	c := New(u.Hostname(), port)

	err := c.StartPIN(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/pair-pin-start", gotPath)
	assert.Empty(t, gotBody)
}

func TestSendPairVerifyUnsupported(t *testing.T) {
	c := New("127.0.0.1", 7000)
	_, err := c.SendPairVerify(context.Background(), []byte{0x00})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "pair-verify"))
}

func TestNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())
	c := New(u.Hostname(), port)

	_, err := c.SendPairSetup(context.Background(), []byte{0x00})
	require.Error(t, err)
}
