package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "qwen2-vl",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"faces\":[]}"}, "finish_reason": "stop"}]
}`

func TestNewClient(t *testing.T) {
	_, err := NewClient("")
	assert.NoError(t, err)

	_, err = NewClient("localhost:8080")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer server.Close()

	c, err := NewClient(server.URL + "/")
	require.NoError(t, err)

	reply, err := c.Query(context.Background(), "qwen2-vl", "find faces", []byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	assert.Equal(t, `{"faces":[]}`, reply)

	assert.Equal(t, "qwen2-vl", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "find faces", got.Messages[0].Content[0].Text)
	assert.True(t, strings.HasPrefix(got.Messages[0].Content[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestQueryNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "m", "p", nil)
	assert.Error(t, err)
}

func TestQueryServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model crashed","type":"server_error"}}`))
	}))
	defer server.Close()

	c, err := NewClient(server.URL)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "m", "p", nil)
	assert.Error(t, err)
}
