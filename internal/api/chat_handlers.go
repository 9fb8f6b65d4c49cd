package api

import (
	"encoding/json"
	"net/http"

	"github.com/carewell-health/clinic-scheduling/internal/chat"
)

func chatHandler(assistant *chat.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		reply, err := assistant.Reply(r.Context(), req.Messages)
		if err != nil {
			writeError(w, http.StatusBadGateway, "chat_unavailable", "the assistant is temporarily unavailable")
			return
		}

		writeJSON(w, http.StatusOK, reply)
	}
}
