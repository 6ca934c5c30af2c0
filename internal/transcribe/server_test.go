package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func audioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio-16k-mono.wav")
	if err := os.WriteFile(path, []byte("RIFF fake wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServerClientTranscribe(t *testing.T) {
	var gotLanguage, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotFormat = r.FormValue("response_format")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("form file: %v", err)
		}

		w.Write([]byte("WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nHello\n\n00:00:01.500 --> 00:00:03.000\nWorld\n"))
	}))
	defer server.Close()

	client := NewServerClient(server.URL)
	var lastProgress float64
	result, err := client.Transcribe(context.Background(), Request{
		AudioPath: audioFixture(t),
		Language:  "en",
	}, func(f float64) { lastProgress = f })
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotFormat != "vtt" {
		t.Errorf("response_format = %q", gotFormat)
	}
	if gotLanguage != "en" {
		t.Errorf("language = %q", gotLanguage)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(result.Segments))
	}
	if result.Segments[0].Text != "Hello" || result.Segments[0].End != 1.5 {
		t.Errorf("segment 0: %+v", result.Segments[0])
	}
	if lastProgress != 1.0 {
		t.Errorf("final progress = %v", lastProgress)
	}
}

func TestServerClientAutoLanguageOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["language"]; ok {
			t.Error("language field sent for auto-detect")
		}
		w.Write([]byte("WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhola\n"))
	}))
	defer server.Close()

	client := NewServerClient(server.URL)
	if _, err := client.Transcribe(context.Background(), Request{
		AudioPath: audioFixture(t),
		Language:  "auto",
	}, func(float64) {}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestServerClientAcceptsHeaderlessVTT(t *testing.T) {
	// whisper-server sometimes returns bare cues without the WEBVTT
	// header.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("00:00:00.000 --> 00:00:01.000\nHello\n"))
	}))
	defer server.Close()

	client := NewServerClient(server.URL)
	result, err := client.Transcribe(context.Background(), Request{AudioPath: audioFixture(t)}, func(float64) {})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Segments) != 1 || result.Segments[0].Text != "Hello" {
		t.Errorf("segments: %+v", result.Segments)
	}
}

func TestServerClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewServerClient(server.URL)
	_, err := client.Transcribe(context.Background(), Request{AudioPath: audioFixture(t)}, func(float64) {})

	var transcribeErr *TranscriptionError
	if !errors.As(err, &transcribeErr) {
		t.Fatalf("want *TranscriptionError, got %v", err)
	}
	if transcribeErr.Engine != "whisper-server" {
		t.Errorf("Engine = %q", transcribeErr.Engine)
	}
}

func TestServerClientEmptyTranscript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("WEBVTT\n\n"))
	}))
	defer server.Close()

	client := NewServerClient(server.URL)
	if _, err := client.Transcribe(context.Background(), Request{AudioPath: audioFixture(t)}, func(float64) {}); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}
