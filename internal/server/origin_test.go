package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNormalizeOrigins(t *testing.T) {
	normalized, allowAll := normalizeOrigins([]string{
		" HTTPS://Chat.Example ", "", "not a url", "http://localhost:8080/path",
	}, zap.NewNop())

	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://chat.example", "http://localhost:8080"}, normalized)

	_, allowAll = normalizeOrigins([]string{"*"}, zap.NewNop())
	assert.True(t, allowAll)
}

func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy([]string{"https://chat.example"}, zap.NewNop())

	for origin, want := range map[string]bool{
		"https://chat.example":      true,
		"https://CHAT.example":      true,
		"https://evil.example":      false,
		"http://chat.example":       false,
		"":                          false,
		"chat.example":              false,
		"https://chat.example:8443": false,
	} {
		r := httptest.NewRequest("GET", "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, policy.checkOrigin(r), "origin %q", origin)
	}
}

func TestOriginPolicyAllowAll(t *testing.T) {
	policy := newOriginPolicy([]string{"*"}, zap.NewNop())

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")
	assert.True(t, policy.checkOrigin(r))

	r.Header.Del("Origin")
	assert.False(t, policy.checkOrigin(r), "a missing origin is never allowed")
}
