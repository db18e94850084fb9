package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/askdata/pkg/dbcapabilities"
)

func ollamaTestServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/generate":
			var req ollamaGenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			assert.Equal(t, 0.1, req.Options.Temperature)
			assert.Equal(t, 512, req.Options.NumPredict)

			json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: response})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaHealthy(t *testing.T) {
	t.Run("reachable server is healthy", func(t *testing.T) {
		srv := ollamaTestServer(t, "")
		defer srv.Close()

		client := NewOllamaClient(&OllamaConfig{BaseURL: srv.URL}, nil)
		assert.True(t, client.Healthy(context.Background()))
	})

	t.Run("unreachable server is not", func(t *testing.T) {
		client := NewOllamaClient(&OllamaConfig{BaseURL: "http://127.0.0.1:1"}, nil)
		assert.False(t, client.Healthy(context.Background()))
	})
}

func TestOllamaGenerate(t *testing.T) {
	req := Request{Paradigm: dbcapabilities.ParadigmRelational, Question: "count users", SchemaContext: "Table: users"}

	t.Run("returns the model response", func(t *testing.T) {
		srv := ollamaTestServer(t, "SELECT count(*) FROM users")
		defer srv.Close()

		client := NewOllamaClient(&OllamaConfig{BaseURL: srv.URL}, nil)
		out, ok := client.Generate(context.Background(), req)

		assert.True(t, ok)
		assert.Equal(t, "SELECT count(*) FROM users", out)
	})

	t.Run("selects the paradigm model", func(t *testing.T) {
		var model string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/generate" {
				var genReq ollamaGenerateRequest
				json.NewDecoder(r.Body).Decode(&genReq)
				model = genReq.Model
			}
			json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "x"})
		}))
		defer srv.Close()

		client := NewOllamaClient(&OllamaConfig{BaseURL: srv.URL}, nil)

		client.Generate(context.Background(), Request{Paradigm: dbcapabilities.ParadigmTabular})
		assert.Equal(t, "qwen-text2pandas:latest", model)

		client.Generate(context.Background(), Request{Paradigm: dbcapabilities.ParadigmDocument})
		assert.Equal(t, "qwen-text2mongo:latest", model)
	})

	t.Run("empty response is no result", func(t *testing.T) {
		srv := ollamaTestServer(t, "   ")
		defer srv.Close()

		client := NewOllamaClient(&OllamaConfig{BaseURL: srv.URL}, nil)
		_, ok := client.Generate(context.Background(), req)
		assert.False(t, ok)
	})

	t.Run("unreachable server is no result", func(t *testing.T) {
		client := NewOllamaClient(&OllamaConfig{BaseURL: "http://127.0.0.1:1"}, nil)
		_, ok := client.Generate(context.Background(), req)
		assert.False(t, ok)
	})
}
