package v1

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{"single public ipv4", []string{"203.0.113.5"}, "203.0.113.5"},
		{"skips private addresses", []string{"192.168.1.10", "203.0.113.5"}, "203.0.113.5"},
		{"ipv4 wins over ipv6", []string{"2001:db8::1", "203.0.113.5"}, "203.0.113.5"},
		{"public ipv6 fallback", []string{"192.168.1.10", "2001:db8::1"}, "2001:db8::1"},
		{"strips port", []string{"203.0.113.5:8080"}, "203.0.113.5"},
		{"all private", []string{"10.0.0.1", "127.0.0.1"}, ""},
		{"empty input", []string{""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, selectPreferredIP(tt.values))
		})
	}
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"203.0.113.5", "203.0.113.5"},
		{" 203.0.113.5 ", "203.0.113.5"},
		{`"203.0.113.5"`, "203.0.113.5"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"fe80::1%eth0", "fe80::1"},
		{"::ffff:203.0.113.5", "203.0.113.5"},
		{"garbage", ""},
	}

	for _, tt := range tests {
		clean, _ := normalizeIP(tt.input)
		assert.Equal(t, tt.expected, clean, "input %q", tt.input)
	}
}

func TestGetClientIPPrefersForwardedFor(t *testing.T) {
	app := fiber.New()
	var captured string
	app.Get("/", func(c *fiber.Ctx) error {
		captured = getClientIP(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.4, 203.0.113.9")

	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", captured)
}
