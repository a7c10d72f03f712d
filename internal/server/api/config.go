package api

import (
	"net/http"
	"sync"

	"github.com/ayusman/abhinaya/internal/config"
)

// ConfigHandler serves the runtime-tunable settings. Accepted updates are
// handed to apply.
type ConfigHandler struct {
	mu    sync.Mutex
	cfg   config.Config
	apply func(config.Config)
}

// NewConfigHandler returns a handler starting from cfg. apply may be nil.
func NewConfigHandler(cfg config.Config, apply func(config.Config)) *ConfigHandler {
	return &ConfigHandler{cfg: cfg, apply: apply}
}

// Config returns the current configuration.
func (h *ConfigHandler) Config() config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Config().Tunables())
	case http.MethodPatch, http.MethodPost:
		h.update(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *ConfigHandler) update(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := decodeBody(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	next := h.cfg
	if err := next.Update(updates); err != nil {
		h.mu.Unlock()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.cfg = next
	h.mu.Unlock()

	if h.apply != nil {
		h.apply(next)
	}
	writeJSON(w, http.StatusOK, next.Tunables())
}
