package category

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, calls *int32, categories map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := classifyResponse{Categories: map[string]string{}}
		for _, ticker := range req.Tickers {
			if category, ok := categories[ticker]; ok {
				resp.Categories[ticker] = category
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{BaseURL: baseURL, RatePerSecond: 1000}, zerolog.Nop())
}

func TestClient_Classify(t *testing.T) {
	var calls int32
	server := newTestServer(t, &calls, map[string]string{
		"HGLG11": "REIT",
		"BOVA11": "etf",
		"SAPR11": "UNIT",
		"XXXX11": "SOMETHING",
	})
	defer server.Close()

	client := newTestClient(server.URL)

	got, err := client.Classify(context.Background(), []string{"HGLG11", "bova11", "SAPR11", "XXXX11", "NONE11"})

	require.NoError(t, err)
	assert.Equal(t, domain.AssetCategoryREIT, got["HGLG11"])
	assert.Equal(t, domain.AssetCategoryETF, got["bova11"])
	assert.Equal(t, domain.AssetCategoryUnit, got["SAPR11"])
	assert.Equal(t, domain.AssetCategoryUnknown, got["XXXX11"])
	_, present := got["NONE11"]
	assert.False(t, present)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_CachesAnswers(t *testing.T) {
	var calls int32
	server := newTestServer(t, &calls, map[string]string{"KNRI11": "REIT"})
	defer server.Close()

	client := newTestClient(server.URL)

	for i := 0; i < 3; i++ {
		got, err := client.Classify(context.Background(), []string{"KNRI11"})
		require.NoError(t, err)
		assert.Equal(t, domain.AssetCategoryREIT, got["KNRI11"])
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Classify(context.Background(), []string{"HGLG11"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestClient_ServerErrorWithCachedSubset(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(classifyResponse{Categories: map[string]string{"HGLG11": "REIT"}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Classify(context.Background(), []string{"HGLG11"})
	require.NoError(t, err)

	fail.Store(true)
	got, err := client.Classify(context.Background(), []string{"HGLG11", "KNRI11"})

	require.NoError(t, err)
	assert.Equal(t, domain.AssetCategoryREIT, got["HGLG11"])
	assert.NotContains(t, got, "KNRI11")
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Classify(context.Background(), []string{"HGLG11"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestClient_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(server.URL).Classify(ctx, []string{"HGLG11"})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStatic_Classify(t *testing.T) {
	s := NewStatic(map[string]domain.AssetCategory{"hglg11": domain.AssetCategoryREIT})

	got, err := s.Classify(context.Background(), []string{"HGLG11", "ABCD11"})

	require.NoError(t, err)
	assert.Equal(t, domain.AssetCategoryREIT, got["HGLG11"])
	assert.Equal(t, domain.AssetCategoryUnknown, got["ABCD11"])
}

func TestStatic_Defaults(t *testing.T) {
	s := NewStatic(DefaultCategories)

	got, err := s.Classify(context.Background(), []string{"BOVA11", "MXRF11", "TAEE11"})

	require.NoError(t, err)
	assert.Equal(t, domain.AssetCategoryETF, got["BOVA11"])
	assert.Equal(t, domain.AssetCategoryREIT, got["MXRF11"])
	assert.Equal(t, domain.AssetCategoryUnit, got["TAEE11"])
}

func TestStatic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatic(DefaultCategories).Classify(ctx, []string{"BOVA11"})

	assert.ErrorIs(t, err, context.Canceled)
}
