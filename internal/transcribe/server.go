package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/subgen/backend/internal/language"
	"github.com/subgen/backend/internal/subtitle"
)

// ServerClient talks to a whisper.cpp HTTP server (whisper-server).
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient creates a client for the whisper.cpp server.
// Transcription of long media can take many minutes, hence the
// generous client timeout; cancellation still works through ctx.
func NewServerClient(baseURL string) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

func (c *ServerClient) Name() string { return "whisper-server" }

// Transcribe uploads the audio and parses the VTT the server returns.
func (c *ServerClient) Transcribe(ctx context.Context, req Request, progress func(float64)) (*Result, error) {
	body, contentType, err := buildInferenceForm(req)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Message: "build request", Err: err}
	}

	progress(0.05)

	url := c.baseURL + "/inference"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Message: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)

	log.Printf("[transcribe] sending request to %s (audio: %s)", url, req.AudioPath)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Message: "server request failed", Err: err}
	}
	defer resp.Body.Close()

	progress(0.9)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranscriptionError{Engine: c.Name(), Message: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TranscriptionError{
			Engine:  c.Name(),
			Message: fmt.Sprintf("server error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	vtt := string(respBody)
	if !strings.HasPrefix(strings.TrimSpace(vtt), "WEBVTT") {
		vtt = "WEBVTT\n\n" + vtt
	}

	segments := subtitle.ParseVTT(vtt)
	if len(segments) == 0 {
		return nil, &TranscriptionError{Engine: c.Name(), Message: "server returned no segments"}
	}

	progress(1.0)
	return &Result{Segments: segments, Language: req.Language}, nil
}

func buildInferenceForm(req Request) (*bytes.Buffer, string, error) {
	audioFile, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer audioFile.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("response_format", "vtt")
	writer.WriteField("temperature", "0.0")
	if req.Language != "" && req.Language != language.Auto {
		writer.WriteField("language", req.Language)
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
