package umnico

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"umnico/internal/platform/config"
)

func TestClient_Do(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"wh1","url":"https://example.com/hook","name":"crm"}`))
	}))
	defer server.Close()

	client := NewClient(config.UmnicoConfig{BaseURL: server.URL + "/", AuthHeader: "token-1"})

	resp, err := client.Do(context.Background(), http.MethodPost, "webhooks/", map[string]string{"url": "https://example.com/hook", "name": "crm"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if gotAuth != "Bearer token-1" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if gotPath != "/v1.3/webhooks/" {
		t.Errorf("Expected /v1.3/webhooks/, got %s", gotPath)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("Expected POST, got %s", gotMethod)
	}
	if gotBody["name"] != "crm" {
		t.Errorf("Expected body name crm, got %v", gotBody["name"])
	}
	if !resp.IsSuccess() {
		t.Errorf("Expected success, got status %d", resp.StatusCode)
	}
}

func TestClient_Do_NonSuccessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`unauthorized`))
	}))
	defer server.Close()

	client := NewClient(config.UmnicoConfig{BaseURL: server.URL})
	resp, err := client.Do(context.Background(), http.MethodGet, "account/me", nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.IsSuccess() {
		t.Error("Expected failure response")
	}
	if resp.Data != "unauthorized" {
		t.Errorf("Expected raw text payload, got %v", resp.Data)
	}
}

func TestClient_Do_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(config.UmnicoConfig{BaseURL: url})
	_, err := client.Do(context.Background(), http.MethodGet, "webhooks/", nil)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestClient_MakeURI(t *testing.T) {
	client := NewClient(config.UmnicoConfig{BaseURL: "https://api.umnico.com"})

	tests := map[string]string{
		"account/me":   "https://api.umnico.com/v1.3/account/me",
		"webhooks/":    "https://api.umnico.com/v1.3/webhooks/",
		"webhooks/abc": "https://api.umnico.com/v1.3/webhooks/abc",
	}
	for endpoint, want := range tests {
		got, err := client.MakeURI(endpoint)
		if err != nil {
			t.Fatalf("MakeURI(%s) error = %v", endpoint, err)
		}
		if got != want {
			t.Errorf("MakeURI(%s) = %s, want %s", endpoint, got, want)
		}
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	client := NewClient(config.UmnicoConfig{})
	if client.BaseURL != config.DefaultBaseURL {
		t.Errorf("Expected default base url, got %s", client.BaseURL)
	}
}
