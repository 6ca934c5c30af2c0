package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientSendsProtocolFields(t *testing.T) {
	var got translateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"translatedText": []string{"Hola"}})
	}))
	defer server.Close()

	client := NewClient(time.Second)
	out, err := client.Translate(context.Background(),
		Endpoint{BaseURL: server.URL, APIKey: "secret"}, []string{"Hello"}, "en", "es")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(out) != 1 || out[0] != "Hola" {
		t.Errorf("out = %v", out)
	}

	if got.Format != "text" || got.Source != "en" || got.Target != "es" || got.APIKey != "secret" {
		t.Errorf("request fields: %+v", got)
	}
}

func TestClientAcceptsBareStringResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"translatedText": "Hola"})
	}))
	defer server.Close()

	client := NewClient(time.Second)
	out, err := client.Translate(context.Background(), Endpoint{BaseURL: server.URL}, []string{"Hello"}, "en", "es")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(out) != 1 || out[0] != "Hola" {
		t.Errorf("out = %v", out)
	}
}

func TestClientRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"translatedText": []string{"only one"}})
	}))
	defer server.Close()

	client := NewClient(time.Second)
	if _, err := client.Translate(context.Background(), Endpoint{BaseURL: server.URL},
		[]string{"a", "b"}, "en", "es"); err == nil {
		t.Fatal("expected error for translation count mismatch")
	}
}

func TestClientRejectsErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "unsupported language pair"})
	}))
	defer server.Close()

	client := NewClient(time.Second)
	if _, err := client.Translate(context.Background(), Endpoint{BaseURL: server.URL},
		[]string{"a"}, "en", "xx"); err == nil {
		t.Fatal("expected error for error payload")
	}
}
