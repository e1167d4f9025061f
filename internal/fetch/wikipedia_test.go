package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/businessinsight/backend/internal/fetch"
)

func TestSummaryReturnsExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Acme","extract":"Acme Corporation is a fictional company."}`))
	}))
	defer srv.Close()

	client := fetch.NewWikipediaClient(srv.Client(), srv.URL+"/api/rest_v1/page/summary")

	summary, err := client.Summary(context.Background(), "Acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Corporation is a fictional company.", summary)
}

func TestSummaryEscapesCompanyName(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"extract":"ok"}`))
	}))
	defer srv.Close()

	client := fetch.NewWikipediaClient(srv.Client(), srv.URL+"/api/rest_v1/page/summary")

	_, err := client.Summary(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.Equal(t, "/api/rest_v1/page/summary/Acme%20Corp", gotPath)
}

func TestSummaryMissingExtractIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"Acme","type":"disambiguation"}`))
	}))
	defer srv.Close()

	client := fetch.NewWikipediaClient(srv.Client(), srv.URL)

	summary, err := client.Summary(context.Background(), "Acme")
	require.NoError(t, err)
	require.Empty(t, summary)
}

func TestSummaryUpstreamFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "not found", status: http.StatusNotFound, body: `{"type":"not_found"}`},
		{name: "malformed json", status: http.StatusOK, body: `{"extract": unterminated`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := fetch.NewWikipediaClient(srv.Client(), srv.URL)

			summary, err := client.Summary(context.Background(), "Acme")
			require.Error(t, err)
			require.Empty(t, summary)
		})
	}
}
