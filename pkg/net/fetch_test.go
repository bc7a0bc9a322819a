package net

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("http://example.com/loans.csv"))
	assert.True(t, IsURL("HTTPS://example.com/loans.csv"))
	assert.False(t, IsURL("/tmp/loans.csv"))
	assert.False(t, IsURL("ftp://example.com/loans.csv"))
}

func TestGetHTTPClient(t *testing.T) {
	c := GetHTTPClient()
	require.NotNil(t, c)
	assert.Equal(t, reqTransport, c.Transport)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/loans.csv":
			assert.Equal(t, clientAgent, r.Header.Get("User-Agent"))
			io.WriteString(w, "income,loan_amount\n")
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	rc, err := Fetch(ctx, srv.URL+"/loans.csv")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "income,loan_amount\n", string(b))

	_, err = Fetch(ctx, srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrorURLNotFound)

	_, err = Fetch(ctx, srv.URL+"/broken")
	assert.Error(t, err)

	_, err = Fetch(ctx, "http://%zz")
	assert.Error(t, err)
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	printHTTPResponse(nil)
}
