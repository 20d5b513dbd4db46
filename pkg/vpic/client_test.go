package vpic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatch_FormEncoding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		require.NoError(t, r.ParseForm())
		// The batch protocol requires CRLF-joined VINs in a single field.
		assert.Equal(t, "1FTFW1ET5DFC10312\r\n5YJ3E1EA7HF000337", r.PostForm.Get("DATA"))
		assert.Equal(t, "json", r.PostForm.Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Count":2,"Results":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	got, err := client.DecodeBatch(context.Background(), []string{"1FTFW1ET5DFC10312", "5YJ3E1EA7HF000337"})
	require.NoError(t, err)
	assert.Equal(t, KindJSON, got.Kind)
	assert.JSONEq(t, `{"Count":2,"Results":[]}`, string(got.JSON))
	assert.Empty(t, got.XML)
}

func TestDecodeBatch_XMLFallback(t *testing.T) {
	t.Parallel()

	const xmlBody = `<?xml version="1.0"?><Response><Count>1</Count></Response>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write([]byte(xmlBody))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	got, err := client.DecodeBatch(context.Background(), []string{"1FTFW1ET5DFC10312"})
	// An ignored format request is not a failure at this layer.
	require.NoError(t, err)
	assert.Equal(t, KindXML, got.Kind)
	assert.Equal(t, xmlBody, got.XML)
	assert.Nil(t, got.JSON)
}

func TestDecodeBatch_UpstreamStatusTruncated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.DecodeBatch(context.Background(), []string{"1FTFW1ET5DFC10312"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, 800)
}

func TestDecodeBatch_Timeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.DecodeBatch(context.Background(), []string{"1FTFW1ET5DFC10312"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must cancel the in-flight call, not hang")
	assert.Contains(t, err.Error(), "decode batch")
}

func TestDecodeBatch_InvalidJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{truncated`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.DecodeBatch(context.Background(), []string{"1FTFW1ET5DFC10312"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}
