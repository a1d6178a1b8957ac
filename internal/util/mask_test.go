package util

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestHideAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Long", "ABCDEFGHIJKLMNOP", "ABCD...MNOP"},
		{"Medium", "ABC123", "AB...23"},
		{"Short", "ABC", "A...C"},
		{"Tiny", "AB", "AB"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HideAPIKey(tt.input); got != tt.expected {
				t.Errorf("HideAPIKey(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Nothing sensitive", "steamids=76561197960287930", "steamids=76561197960287930"},
		{"Key masked", "key=ABCDEFGHIJKLMNOP&steamids=1", "key=ABCD...MNOP&steamids=1"},
		{"Signature masked", "openid.sig=SIGNATUREVALUE", "openid.sig=SIGN...ALUE"},
		{"Key without value", "key", "key="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskSensitiveQuery(tt.input); got != tt.expected {
				t.Errorf("MaskSensitiveQuery(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMaskSensitiveError(t *testing.T) {
	raw := &url.Error{
		Op:  "Get",
		URL: "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v2/?key=ABCDEFGHIJKLMNOP&steamids=1",
		Err: errors.New("connection refused"),
	}
	masked := MaskSensitiveError(raw)
	if strings.Contains(masked.Error(), "ABCDEFGHIJKLMNOP") {
		t.Fatalf("key leaked: %v", masked)
	}
	if !strings.Contains(masked.Error(), "connection refused") {
		t.Fatalf("cause lost: %v", masked)
	}

	plain := errors.New("boom")
	if MaskSensitiveError(plain) != plain {
		t.Fatal("non-url errors must be returned unchanged")
	}
	if MaskSensitiveError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
