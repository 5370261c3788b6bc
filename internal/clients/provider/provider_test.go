package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stance/internal/common"
)

func TestHTTPProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		switch r.URL.Path {
		case "/company/TCS":
			_, _ = w.Write([]byte(`{"name":"Tata Consultancy Services"}`))
		case "/company/BUSY":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/company/BAD":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, WithAPIKey("secret"), WithRateLimit(100))
	ctx := context.Background()

	body, err := p.Fetch(ctx, "TCS")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Tata Consultancy Services"}`, string(body))

	_, err = p.Fetch(ctx, "NOPE")
	assert.ErrorIs(t, err, common.ErrSymbolNotFound)

	_, err = p.Fetch(ctx, "BUSY")
	var pErr *common.ProviderDataError
	require.True(t, errors.As(err, &pErr))
	assert.True(t, pErr.Transient)
	assert.False(t, common.IsFatal(err))

	_, err = p.Fetch(ctx, "BAD")
	require.True(t, errors.As(err, &pErr))
	assert.False(t, pErr.Transient)
	assert.True(t, common.IsFatal(err))
}

func TestHTTPProvider_UnreachableIsTransient(t *testing.T) {
	p := NewHTTPProvider("http://127.0.0.1:1", WithTimeout(time.Second))
	_, err := p.Fetch(context.Background(), "TCS")
	var pErr *common.ProviderDataError
	require.True(t, errors.As(err, &pErr))
	assert.True(t, pErr.Transient)
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, WithRateLimit(1))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := p.Fetch(ctx, "TCS")
	require.NoError(t, err)
	_, err = p.Fetch(ctx, "TCS")
	assert.Error(t, err, "second call must wait for a token beyond the deadline")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "INFY.json"), []byte(`{"name":"Infosys"}`), 0o644))

	p := NewFileProvider(dir)
	body, err := p.Fetch(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Contains(t, string(body), "Infosys")

	_, err = p.Fetch(context.Background(), "TCS")
	assert.ErrorIs(t, err, common.ErrSymbolNotFound)
}
