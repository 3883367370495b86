package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePIILevel(t *testing.T) {
	assert.Equal(t, PIILevelNone, ParsePIILevel(" NONE "))
	assert.Equal(t, PIILevelFull, ParsePIILevel("full"))
	assert.Equal(t, PIILevelHashed, ParsePIILevel(""))
	assert.Equal(t, PIILevelHashed, ParsePIILevel("bogus"))
}

func TestContent_None(t *testing.T) {
	s := NewSanitizer(PIILevelNone, "jan-chat")
	assert.Equal(t, "[REDACTED len=5]", s.Content("Hello"))
}

func TestContent_Full(t *testing.T) {
	s := NewSanitizer(PIILevelFull, "jan-chat")
	input := "My email is john@example.com"
	assert.Equal(t, input, s.Content(input))
}

func TestContent_Hashed(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "jan-chat")

	tests := []struct {
		name     string
		input    string
		leaked   string
		redacted string
	}{
		{"email", "Contact me at john.doe@example.com please", "john.doe@example.com", "[EMAIL:"},
		{"phone", "Call me at 555-123-4567", "555-123-4567", "[PHONE:"},
		{"card", "Card 4111 1111 1111 1111 expires soon", "4111 1111 1111 1111", "[CC:REDACTED]"},
		{"ipv4", "Server at 192.168.1.20 is down", "192.168.1.20", "[IP:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.Content(tt.input)
			assert.NotContains(t, result, tt.leaked)
			assert.Contains(t, result, tt.redacted)
		})
	}
}

func TestHashesAreStablePerSalt(t *testing.T) {
	a := NewSanitizer(PIILevelHashed, "one")
	b := NewSanitizer(PIILevelHashed, "two")

	assert.Equal(t, a.UserID("user-1"), a.UserID("user-1"))
	assert.NotEqual(t, a.UserID("user-1"), b.UserID("user-1"))
	assert.Len(t, a.UserID("user-1"), 8)
}

func TestEmailKeepsDomain(t *testing.T) {
	s := NewSanitizer(PIILevelHashed, "jan-chat")
	result := s.Email("Alice@Example.com")
	assert.NotContains(t, result, "Alice")
	assert.Contains(t, result, "@Example.com")
	assert.Equal(t, "", s.Email(""))
	assert.Equal(t, "[REDACTED]", NewSanitizer(PIILevelNone, "").Email("a@b.io"))
}
