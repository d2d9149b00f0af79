package relay

import (
	"encoding/json"
	"net/http"

	"rebuild-relay/relay/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduz o erro classificado para status + envelope JSON.
// Upstream e store não expõem detalhes internos na resposta.
func writeError(w http.ResponseWriter, err error) {
	rich := domain.AsRelayError(err)
	msg := rich.Message
	switch rich.TextCode {
	case domain.ErrorUpstream:
		msg = "dispatch rejected by upstream"
	case domain.ErrorStore:
		msg = "state store unavailable"
	}
	writeJSON(w, rich.Code, errorBody{Error: errorDetail{Code: rich.TextCode, Message: msg}})
}
