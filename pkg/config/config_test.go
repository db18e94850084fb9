package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	t.Run("get and update", func(t *testing.T) {
		cfg := New()
		assert.Empty(t, cfg.Get("server.http.port"))

		cfg.Update(map[string]string{"server.http.port": "8080"})
		assert.Equal(t, "8080", cfg.Get("server.http.port"))
	})

	t.Run("get or default", func(t *testing.T) {
		cfg := New()
		assert.Equal(t, "8080", cfg.GetOrDefault("server.http.port", "8080"))

		cfg.Update(map[string]string{"server.http.port": "9090"})
		assert.Equal(t, "9090", cfg.GetOrDefault("server.http.port", "8080"))
	})

	t.Run("load env maps prefixed variables to dotted keys", func(t *testing.T) {
		t.Setenv("ASKDATA_LLM_OLLAMA_URL", "http://127.0.0.1:11434")
		t.Setenv("ASKDATA_SERVER_HTTP_PORT", "8081")
		t.Setenv("UNRELATED_VALUE", "ignored")

		cfg := New()
		cfg.LoadEnv("ASKDATA_")

		assert.Equal(t, "http://127.0.0.1:11434", cfg.Get("llm.ollama.url"))
		assert.Equal(t, "8081", cfg.Get("server.http.port"))
		assert.Empty(t, cfg.Get("value"))
	})

	t.Run("get all returns a copy", func(t *testing.T) {
		cfg := New()
		cfg.Update(map[string]string{"a": "1"})

		all := cfg.GetAll()
		all["a"] = "changed"

		assert.Equal(t, "1", cfg.Get("a"))
	})
}
