package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"hyprice/refresh"
	"hyprice/render"
	"hyprice/scheduler"
	"hyprice/sink"
	"hyprice/utils"
	"hyprice/watchlist"
)

// Symbols are short user-chosen labels; addresses are opaque hex keys.
// Format rules live here at the boundary, the core accepts any opaque
// string.
var (
	symbolPattern  = regexp.MustCompile(`^[A-Za-z0-9]{1,12}$`)
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{8,64}$`)
)

// Handler is the HTTP command boundary: the same add/remove/view
// operations a chat transport would issue, with input validated before
// anything reaches the core.
type Handler struct {
	store   *watchlist.Store
	engine  *refresh.Engine
	manager *scheduler.Manager
	out     sink.PresentationSink
}

func NewHandler(store *watchlist.Store, engine *refresh.Engine, manager *scheduler.Manager, out sink.PresentationSink) *Handler {
	return &Handler{store: store, engine: engine, manager: manager, out: out}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/track", h.track)
	mux.HandleFunc("/api/untrack", h.untrack)
	mux.HandleFunc("/api/view", h.view)
	mux.HandleFunc("/api/reset", h.reset)
}

func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	id, err := subscriberID(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol := strings.TrimPrefix(r.URL.Query().Get("symbol"), "$")
	if !symbolPattern.MatchString(symbol) {
		httpError(w, http.StatusBadRequest, "symbol must be 1-12 alphanumeric characters")
		return
	}
	symbol = strings.ToUpper(symbol)

	address := r.URL.Query().Get("address")
	if !addressPattern.MatchString(address) {
		httpError(w, http.StatusBadRequest, "address must be a 0x-prefixed hex string")
		return
	}

	if err := h.store.AddToken(id, symbol, address); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}

	// First tracking action arms the subscriber's refresh loop.
	h.manager.Start(id)
	h.respondWithView(w, r, id)
}

func (h *Handler) untrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	id, err := subscriberID(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol := strings.ToUpper(strings.TrimPrefix(r.URL.Query().Get("symbol"), "$"))
	removed := h.store.RemoveToken(id, symbol)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"removed": removed})
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	id, err := subscriberID(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An explicit view request is the one read that materializes an
	// unknown subscriber with the seed watchlist.
	h.store.Get(id)
	h.manager.Start(id)
	h.respondWithView(w, r, id)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	id, err := subscriberID(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.manager.Stop(id)
	removed := h.store.Reset(id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"reset": removed})
}

// respondWithView runs a direct refresh pass, hands the view to the
// sink and echoes it in the response.
func (h *Handler) respondWithView(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := h.engine.Refresh(r.Context(), id, refresh.Direct); err != nil {
		utils.Error(err, "Direct refresh aborted", "subscriber", id)
	}

	view := render.Render(h.store.Get(id))
	if err := h.out.Deliver(id, view); err != nil {
		utils.Error(err, "View delivery failed", "subscriber", id)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func subscriberID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("subscriber")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subscriber must be a numeric id, got %q", raw)
	}
	return id, nil
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
