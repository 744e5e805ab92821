package source_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanloremedia/fanlore/internal/catalog/source"
	pkgerrors "github.com/fanloremedia/fanlore/pkg/errors"
)

func TestClientFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/celebrities/hikari-tanaka/videos", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "25", r.URL.Query().Get("page_size"))
		assert.Equal(t, "tok-2", r.URL.Query().Get("page_token"))

		json.NewEncoder(w).Encode(source.Page{
			Records: []source.Record{
				{ExternalRef: "vid-1", Platform: "youtube", Title: "Tokyo Walking Tour #12"},
			},
			NextPageToken: "tok-3",
		})
	}))
	defer server.Close()

	client := source.NewClient(server.URL, "test-key", 5*time.Second)
	page, err := client.FetchPage(context.Background(), "hikari-tanaka", "tok-2", 25)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "vid-1", page.Records[0].ExternalRef)
	assert.Equal(t, "tok-3", page.NextPageToken)
}

func TestClientFetchPageUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := source.NewClient(server.URL, "test-key", 5*time.Second)
	_, err := client.FetchPage(context.Background(), "hikari-tanaka", "", 25)
	assert.True(t, pkgerrors.IsExternalFetchFailure(err))
}

func TestClientFetchPageTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := source.NewClient(server.URL, "test-key", 10*time.Millisecond)
	_, err := client.FetchPage(context.Background(), "hikari-tanaka", "", 25)
	assert.True(t, pkgerrors.IsTimeout(err))
}
