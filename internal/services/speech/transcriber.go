package speech

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const (
	// DefaultTranscribeModel is the default speech-to-text model
	DefaultTranscribeModel = "whisper-1"
	// DefaultTimeout is the default timeout for transcription calls
	DefaultTimeout = 60 * time.Second
)

// TranscriberInterface converts audio bytes into text
type TranscriberInterface interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Transcriber transcribes audio through the OpenAI audio API
type Transcriber struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

var _ TranscriberInterface = (*Transcriber)(nil)

// NewTranscriber creates a new transcriber. An empty model falls back
// to the default.
func NewTranscriber(apiKey, baseURL, model string, log *zap.Logger) *Transcriber {
	if model == "" {
		model = DefaultTranscribeModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Transcriber{
		client: openai.NewClient(opts...),
		model:  model,
		logger: log,
	}
}

// Transcribe sends audio to the speech-to-text API and returns the
// trimmed transcript. An empty transcript is returned as-is; callers
// decide how to treat it.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data to transcribe")
	}

	filename := filenameForMime(mimeType)

	start := time.Now()
	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(t.model),
		File:  openai.File(bytes.NewReader(audio), filename, mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	transcript := strings.TrimSpace(resp.Text)

	t.logger.Info("audio transcribed",
		zap.Int("audio_bytes", len(audio)),
		zap.Int("transcript_length", len(transcript)),
		zap.Int64("latency_ms", time.Since(start).Milliseconds()))

	return transcript, nil
}

// filenameForMime picks a filename extension the audio API accepts.
// WhatsApp voice notes arrive as audio/ogg (opus).
func filenameForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"):
		return "audio.ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "audio.mp3"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return "audio.mp4"
	case strings.Contains(mimeType, "wav"):
		return "audio.wav"
	case strings.Contains(mimeType, "webm"):
		return "audio.webm"
	default:
		return "audio.ogg"
	}
}
