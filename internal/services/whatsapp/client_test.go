package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSendText(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"messages":[{"id":"wamid.out1"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", "555000111", "test-token", zap.NewNop())

	if err := client.SendText(context.Background(), "15551234567", "hello there"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	if gotPath != "/v21.0/555000111/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody["messaging_product"] != "whatsapp" {
		t.Errorf("messaging_product = %v", gotBody["messaging_product"])
	}
	if gotBody["to"] != "15551234567" {
		t.Errorf("to = %v", gotBody["to"])
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "hello there" {
		t.Errorf("text.body = %v", text["body"])
	}
}

func TestSendTextTruncatesLongBody(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", "555000111", "test-token", zap.NewNop())

	long := strings.Repeat("a", maxMessageLength+500)
	if err := client.SendText(context.Background(), "15551234567", long); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}

	text, _ := gotBody["text"].(map[string]any)
	body, _ := text["body"].(string)
	if len(body) != maxMessageLength {
		t.Errorf("sent body length = %d, want %d", len(body), maxMessageLength)
	}
	if !strings.HasSuffix(body, "...") {
		t.Error("truncated body should end with ellipsis")
	}
}

func TestSendTextEmptyBodyIsNoop(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty body should not hit the API")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", "555000111", "test-token", zap.NewNop())
	if err := client.SendText(context.Background(), "15551234567", ""); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
}

func TestSendTextAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad token"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", "555000111", "bad-token", zap.NewNop())

	err := client.SendText(context.Background(), "15551234567", "hello")
	if err == nil {
		t.Fatal("expected error on HTTP 401")
	}
	if !strings.Contains(err.Error(), "HTTP 401") {
		t.Errorf("error = %v, want HTTP 401 mention", err)
	}
}

func TestDownloadMedia(t *testing.T) {
	t.Parallel()

	const audioBytes = "fake-ogg-bytes"

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/v21.0/media-789", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"url":%q,"mime_type":"audio/ogg"}`, srv.URL+"/download/media-789")
	})
	mux.HandleFunc("/download/media-789", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, audioBytes)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", "555000111", "test-token", zap.NewNop())

	data, mimeType, err := client.DownloadMedia(context.Background(), "media-789")
	if err != nil {
		t.Fatalf("DownloadMedia() error = %v", err)
	}
	if string(data) != audioBytes {
		t.Errorf("data = %q, want %q", data, audioBytes)
	}
	if mimeType != "audio/ogg" {
		t.Errorf("mime_type = %q, want audio/ogg", mimeType)
	}
}

func TestDownloadMediaLookupFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", "555000111", "test-token", zap.NewNop())

	if _, _, err := client.DownloadMedia(context.Background(), "missing"); err == nil {
		t.Fatal("expected error on missing media")
	}
}
