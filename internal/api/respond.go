package api

import (
	"log/slog"
	"net/http"

	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// respond writes v as a deflate-compressed JSON body, the encoding
// every protocol response uses.
func respond(w http.ResponseWriter, r *http.Request, v any) {
	body, err := wire.EncodeResponse(v)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error("failed to encode response", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log := logger.FromContext(r.Context())
		log.Error("failed to write response", slog.String("error", err.Error()))
	}
}

// respondStatus writes a bare status envelope.
func respondStatus(w http.ResponseWriter, r *http.Request, status string) {
	respond(w, r, wire.StatusResponse{Status: status})
}
