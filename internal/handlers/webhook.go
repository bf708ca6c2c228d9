package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/dedup"
	"github.com/tasky-bot/tasky/internal/logger"
	"github.com/tasky-bot/tasky/internal/services/agent"
	"github.com/tasky-bot/tasky/internal/services/speech"
	"github.com/tasky-bot/tasky/internal/services/whatsapp"
)

const signatureHeader = "X-Hub-Signature-256"

// audioApology is sent verbatim when an audio message cannot be transcribed.
const audioApology = "Sorry, I couldn't process your audio message. Please try sending a text message instead."

// busyReply is sent when the model provider rejects a request for rate limiting.
const busyReply = "I'm handling a lot of messages right now. Please try again in a minute."

var errEmptyTranscript = errors.New("empty transcript")

// AgentInvoker runs the conversational agent for one user message
type AgentInvoker interface {
	Invoke(ctx context.Context, userID uuid.UUID, message string) (string, error)
}

// WebhookHandler handles WhatsApp webhook verification and message delivery
type WebhookHandler struct {
	users       database.UserRepositoryInterface
	client      whatsapp.ClientInterface
	transcriber speech.TranscriberInterface
	agent       AgentInvoker
	dedup       dedup.Checker
	verifyToken string
	appSecret   string
	logger      *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	users database.UserRepositoryInterface,
	client whatsapp.ClientInterface,
	transcriber speech.TranscriberInterface,
	agent AgentInvoker,
	dedupChecker dedup.Checker,
	verifyToken, appSecret string,
	log *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		users:       users,
		client:      client,
		transcriber: transcriber,
		agent:       agent,
		dedup:       dedupChecker,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		logger:      log,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/webhook", h.Verify).Methods("GET")
	r.HandleFunc("/webhook", h.Receive).Methods("POST")
}

// Verify handles Meta's subscription handshake. The challenge echoes
// back only when all three parameters are present, the mode is
// "subscribe" and the token matches.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "" || token == "" || challenge == "" {
		http.Error(w, "Missing verification parameters", http.StatusBadRequest)
		return
	}

	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("webhook verification rejected", zap.String("mode", mode))
		http.Error(w, "Verification failed", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		h.logger.Error("failed to write challenge", zap.Error(err))
	}
}

// Receive handles incoming webhook events. Meta retries deliveries
// that do not get a 2xx, so processing failures after the signature
// check still return 200.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !whatsapp.VerifySignature(body, r.Header.Get(signatureHeader), h.appSecret) {
		h.logger.Warn("webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if !whatsapp.IsMessageEvent(payload) {
		respondStatus(w, http.StatusOK, "ignored")
		return
	}

	msg := whatsapp.ParseMessage(payload)
	if msg.PhoneNumber == "" {
		// Nothing to reply to
		h.logger.Warn("message event without sender phone", zap.String("message_id", msg.MessageID))
		respondStatus(w, http.StatusOK, "ignored")
		return
	}

	if h.dedup != nil && h.dedup.Seen(r.Context(), msg.MessageID) {
		h.logger.Info("duplicate webhook delivery ignored", zap.String("message_id", msg.MessageID))
		respondStatus(w, http.StatusOK, "ignored")
		return
	}

	status := h.process(r.Context(), msg)
	respondStatus(w, http.StatusOK, status)
}

// process runs the message pipeline and returns the response status string.
func (h *WebhookHandler) process(ctx context.Context, msg whatsapp.IncomingMessage) string {
	user, err := h.users.GetOrCreateByPhone(ctx, msg.PhoneNumber, msg.Username)
	if err != nil {
		h.logger.Error("failed to resolve user",
			zap.String("phone", logger.MaskPhone(msg.PhoneNumber)),
			zap.Error(err))
		return "error"
	}

	text := msg.Body
	if msg.Type == whatsapp.MessageTypeAudio && msg.AudioID != "" {
		transcript, err := h.transcribeAudio(ctx, msg)
		if err != nil {
			h.logger.Warn("audio transcription failed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err))
			if sendErr := h.client.SendText(ctx, msg.PhoneNumber, audioApology); sendErr != nil {
				h.logger.Error("failed to send audio apology", zap.Error(sendErr))
			}
			return "error"
		}

		if err := h.client.SendText(ctx, msg.PhoneNumber, "You said: \n"+transcript); err != nil {
			h.logger.Error("failed to echo transcript", zap.Error(err))
		}
		text = transcript
	}

	if text == "" {
		return "ignored"
	}

	reply, err := h.agent.Invoke(ctx, user.ID, text)
	if err != nil {
		h.logger.Error("agent invocation failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
		if agent.IsRateLimitError(err) {
			if sendErr := h.client.SendText(ctx, msg.PhoneNumber, busyReply); sendErr != nil {
				h.logger.Error("failed to send busy reply", zap.Error(sendErr))
			}
		}
		return "error"
	}

	if err := h.client.SendText(ctx, msg.PhoneNumber, reply); err != nil {
		h.logger.Error("failed to send reply",
			zap.String("phone", logger.MaskPhone(msg.PhoneNumber)),
			zap.Error(err))
		return "error"
	}

	return "success"
}

func (h *WebhookHandler) transcribeAudio(ctx context.Context, msg whatsapp.IncomingMessage) (string, error) {
	audio, mimeType, err := h.client.DownloadMedia(ctx, msg.AudioID)
	if err != nil {
		return "", err
	}

	transcript, err := h.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}
	if transcript == "" {
		return "", errEmptyTranscript
	}
	return transcript, nil
}
