package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestGetAppendsParams(t *testing.T) {
	var gotQuery url.Values
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := NewHTTP().Request(context.Background(), http.MethodGet, srv.URL+"?keep=1",
		url.Values{"extra": {"2"}}, map[string]string{"Accept": "application/json"})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "1", gotQuery.Get("keep"))
	assert.Equal(t, "2", gotQuery.Get("extra"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
}

func TestRequestPostSendsForm(t *testing.T) {
	var gotForm url.Values
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := NewHTTP().Request(context.Background(), http.MethodPost, srv.URL,
		url.Values{"grant_type": {"authorization_code"}, "code": {"c-1"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "c-1", gotForm.Get("code"))
}

func TestRequestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTP().Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
}

func TestRequestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewHTTP().Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Zero(t, statusErr.Status)
}
