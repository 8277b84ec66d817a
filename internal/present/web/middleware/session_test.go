package middleware

import (
	"testing"
)

func TestLocalRedirect(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/":                     "/",
		"/admin/hosts?select=a": "/admin/hosts?select=a",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"https://evil.example":  "/",
		"admin":                 "/",
	}

	for target, expected := range tests {
		if got := LocalRedirect(target); got != expected {
			t.Fatalf("LocalRedirect(%q): expected %q got %q", target, expected, got)
		}
	}
}

func TestWelcomeURL(t *testing.T) {
	if WelcomeURL("/") != "/welcome" {
		t.Fatalf("root needs no from parameter")
	}
	if got := WelcomeURL("/admin/entities?select=a"); got != "/welcome?from=%2Fadmin%2Fentities%3Fselect%3Da" {
		t.Fatalf("unexpected url %q", got)
	}
}
