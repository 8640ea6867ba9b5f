package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhone_AustralianFormats(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mobile plain", "0412345678", "+61412345678"},
		{"mobile spaced", "0412 345 678", "+61412345678"},
		{"landline melbourne", "0398765432", "+61398765432"},
		{"landline formatted", "(03) 9876 5432", "+61398765432"},
		{"country code no plus", "61412345678", "+61412345678"},
		{"already e164", "+61412345678", "+61412345678"},
		{"e164 spaced", "+61 412 345 678", "+61412345678"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Phone(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, "+61"))
		})
	}
}

func TestPhone_UnrecognizedPassThrough(t *testing.T) {
	for _, in := range []string{"", "12345", "1800 ACME", "+1 415 555 0100", "not a phone"} {
		assert.Equal(t, in, Phone(in), "input %q", in)
	}
}

func TestWebsite(t *testing.T) {
	assert.Equal(t, "https://example.com.au", Website("example.com.au"))
	assert.Equal(t, "http://example.com.au", Website("http://example.com.au"))
	assert.Equal(t, "https://example.com.au", Website("  example.com.au "))
	assert.Equal(t, "", Website(""))
}

func TestHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Example.com.au/about", "example.com.au"},
		{"example.com.au", "example.com.au"},
		{"http://smithplumbing.com.au", "smithplumbing.com.au"},
		{"", ""},
		{"://///", ""},
		{"ht tp://bad host", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Hostname(tt.in), "input %q", tt.in)
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "info@example.com.au", Email("  Info@Example.COM.AU "))
	assert.Equal(t, "", Email("   "))
}

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Smith Plumbing Pty Ltd", "SMITH PLUMBING"},
		{"Smith Plumbing Pty. Limited", "SMITH PLUMBING"},
		{"Smith   Plumbing", "SMITH PLUMBING"},
		{"Café Brioche Pty Ltd", "CAFE BRIOCHE"},
		{"Acme Co.", "ACME"},
		{"Jones & Sons P/L", "JONES & SONS"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.in), "input %q", tt.in)
	}
}
