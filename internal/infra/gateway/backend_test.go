package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/client"
	"github.com/totegamma/concrnt-console/internal/domain"
)

func TestOptionalDocumentsMapToNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tos":
			w.WriteHeader(http.StatusNotFound)
		case "/code-of-conduct":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	g := NewBackendGateway(client.New(server.URL, client.Options{Timeout: time.Second}))

	if _, err := g.FetchTermsOfService(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := g.FetchRegisterTemplate(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err := g.FetchCodeOfConduct(context.Background())
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("server errors must pass through, got %v", err)
	}
}

func TestResourceGatewaysAttachCredential(t *testing.T) {
	var auth []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cl := client.New(server.URL, client.Options{Timeout: time.Second})
	ctx := context.Background()

	if _, err := NewEntityGateway(cl).List(ctx, "a"); err != nil {
		t.Fatalf("list entities failed: %v", err)
	}
	if err := NewHostGateway(cl).Update(ctx, "b", concrnt.Host{ID: "h.example"}); err != nil {
		t.Fatalf("update host failed: %v", err)
	}
	if err := NewBackendGateway(cl).SubmitRegistration(ctx, "", concrnt.RegistrationRequest{CCID: "con1a"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	expected := []string{"Bearer a", "Bearer b", ""}
	for i := range expected {
		if auth[i] != expected[i] {
			t.Fatalf("request %d: expected %q got %q", i, expected[i], auth[i])
		}
	}
}
