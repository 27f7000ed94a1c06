package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/relaybridge/toolbridge/pkg/bridgeerrors"
	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
	"github.com/relaybridge/toolbridge/pkg/channel"
	"github.com/relaybridge/toolbridge/pkg/forwarder"
	"github.com/relaybridge/toolbridge/pkg/logging"
	"github.com/relaybridge/toolbridge/pkg/ratelimiter"
	"github.com/relaybridge/toolbridge/pkg/reqcontext"
	"github.com/relaybridge/toolbridge/pkg/tokencount"
)

type handlers struct {
	forwarder *forwarder.Forwarder
	channel   channel.Config
	rate      *ratelimiter.Limiter
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) postMessages(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}

	original, err := decodeClientRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	requestID := uuid.NewString()
	rc, err := reqcontext.Build(requestID, original, h.channel, clientAPIKey(r))
	if err != nil {
		if bridgeerrors.IsConfigError(err) {
			writeError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
			return
		}
		logging.Error("request context build failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "api_error", "internal error")
		return
	}

	if original.Stream {
		if err := h.forwarder.Stream(r.Context(), rc, w); err != nil {
			logging.Error("streaming forward failed", logging.String("request_id", requestID), logging.Err(err))
		}
		return
	}

	resp, err := h.forwarder.Call(r.Context(), rc)
	if err != nil {
		h.writeForwardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) countTokens(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}
	req, err := decodeClientRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	n := tokencount.Count(bridgetypes.PromptText(req), req.Model)
	writeJSON(w, http.StatusOK, map[string]int{"input_tokens": n})
}

func (h *handlers) writeForwardError(w http.ResponseWriter, err error) {
	switch {
	case bridgeerrors.IsUpstreamHTTPError(err):
		writeError(w, http.StatusBadGateway, "api_error", err.Error())
	case bridgeerrors.IsUpstreamReadError(err), bridgeerrors.IsTimeout(err):
		writeError(w, http.StatusGatewayTimeout, "api_error", err.Error())
	default:
		logging.Error("non-streaming forward failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]interface{}{
		"type": "error",
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
