package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("patient@example.com"))
	assert.True(t, IsValidEmail("  patient@example.com "))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail(""))
}

func TestIsKnownPlatform(t *testing.T) {
	assert.True(t, IsKnownPlatform("ios"))
	assert.True(t, IsKnownPlatform("Android"))
	assert.False(t, IsKnownPlatform("web"))
	assert.False(t, IsKnownPlatform(""))
}

func TestCompactNonEmpty(t *testing.T) {
	got := CompactNonEmpty([]string{" u1", "", "u2", "u1", "   "})
	assert.Equal(t, []string{"u1", "u2"}, got)
	assert.Empty(t, CompactNonEmpty(nil))
}
