package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		BaseURL:        serverURL,
		APIKey:         "test-key",
		EmbeddingModel: "test/embedder",
		ChatModel:      "test/chat",
		VisionModel:    "test/vision",
		ProviderOrder:  []string{"nebius"},
	})
}

func TestCreateEmbeddings(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float64{0.1, 0.2}},
				{"embedding": []float64{0.3, 0.4}},
			},
		})
	}))
	defer srv.Close()

	vectors, err := testClient(srv.URL).CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float64{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float64{0.3, 0.4}, vectors[1])

	assert.Equal(t, "test/embedder", captured["model"])
	provider, ok := captured["provider"].(map[string]interface{})
	require.True(t, ok, "provider routing hint must be present")
	assert.Equal(t, []interface{}{"nebius"}, provider["order"])
}

func TestCreateEmbeddings_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float64{0.1}},
			},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count mismatch")
}

func TestCreateEmbeddings_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateEmbeddings(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCreateEmbeddings_APIErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "no provider available", "code": 502},
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateEmbeddings(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider available")
}

func TestComplete(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "Tax Documents"}},
			},
		})
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).Complete(context.Background(), "name this cluster", 20)
	require.NoError(t, err)
	assert.Equal(t, "Tax Documents", reply)

	assert.Equal(t, "test/chat", captured["model"])
	assert.Equal(t, float64(20), captured["max_tokens"])
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), "prompt", 20)
	assert.Error(t, err)
}

func TestDescribeImage(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "a scanned receipt"}},
			},
		})
	}))
	defer srv.Close()

	desc, err := testClient(srv.URL).DescribeImage(context.Background(), []byte{1, 2, 3}, "image/png", "describe", 500)
	require.NoError(t, err)
	assert.Equal(t, "a scanned receipt", desc)

	assert.Equal(t, "test/vision", captured["model"])
	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	img := content[1].(map[string]interface{})
	assert.Equal(t, "image_url", img["type"])
	url := img["image_url"].(map[string]interface{})["url"].(string)
	assert.Contains(t, url, "data:image/png;base64,")
}
