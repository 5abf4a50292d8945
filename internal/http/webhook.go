package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gastobot/internal/services"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// handleWebhook receives Twilio's form-encoded webhook, runs the message
// through the dispatcher and answers with TwiML so the reply goes straight
// back over WhatsApp.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Webhook form parse error", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	in := services.Inbound{
		Sender: r.Form.Get("From"),
		Text:   r.Form.Get("Body"),
	}
	if numMedia, _ := strconv.Atoi(r.Form.Get("NumMedia")); numMedia > 0 {
		in.MediaURL = r.Form.Get("MediaUrl0")
		in.MediaContentType = r.Form.Get("MediaContentType0")
	}

	reply := s.dispatcher.HandleMessage(r.Context(), in)

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
    <Message>%s</Message>
</Response>`, xmlEscaper.Replace(reply))

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(twiml))
}

func (s *Server) handleWebhookTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "WhatsApp webhook is ready",
	})
}
