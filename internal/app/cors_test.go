package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"blog.example.com", "*.example.org", "localhost:*"}

	assert.True(t, originAllowed(patterns, "https://blog.example.com"))
	assert.True(t, originAllowed(patterns, "https://api.example.org"))
	assert.True(t, originAllowed(patterns, "http://localhost:3000"))
	assert.True(t, originAllowed(patterns, "http://localhost:5173"))

	assert.False(t, originAllowed(patterns, "https://evil.com"))
	assert.False(t, originAllowed(patterns, "https://example.com"))
	assert.False(t, originAllowed(nil, "https://blog.example.com"))
}
