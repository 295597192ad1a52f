package azureopenai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domainerrors "civicpulse/contexts/civic-reporting/duplicate-detection/domain/errors"
)

func TestEmbedParsesDeploymentResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("expected api-key header, got %q", r.Header.Get("api-key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	provider, err := New(Options{Endpoint: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	vector, err := provider.Embed(context.Background(), "pothole near market")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestEmbedMapsThrottlingToRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider, err := New(Options{Endpoint: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.Embed(context.Background(), "text")
	if !errors.Is(err, domainerrors.ErrEmbeddingRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
}

func TestEmbedMapsServerFailureToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider, err := New(Options{Endpoint: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.Embed(context.Background(), "text")
	if !errors.Is(err, domainerrors.ErrEmbeddingUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestEmbedRejectsEmptyPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	provider, err := New(Options{Endpoint: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = provider.Embed(context.Background(), "text")
	if !errors.Is(err, domainerrors.ErrEmbeddingUnavailable) {
		t.Fatalf("expected unavailable error for empty payload, got %v", err)
	}
}

func TestNewRequiresEndpointAndKey(t *testing.T) {
	if _, err := New(Options{APIKey: "secret"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, err := New(Options{Endpoint: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
