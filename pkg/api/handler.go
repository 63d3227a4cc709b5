package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hazyhaar/touchstone-names/pkg/kit"
	"github.com/hazyhaar/touchstone-names/pkg/names"
)

// NewRouter returns an http.Handler with all name API routes.
// When m is nil no metrics are recorded and /metrics is not served.
func NewRouter(svc *Service, m *Metrics) http.Handler {
	mux := http.NewServeMux()
	h := &handler{eps: buildEndpoints(svc, m), svc: svc}

	mux.HandleFunc("POST /v1/normalize", h.handleNormalize)
	mux.HandleFunc("POST /v1/match", h.handleMatch)
	mux.HandleFunc("POST /v1/names", h.handleAddNames)
	mux.HandleFunc("GET /v1/lookup/{name}", h.handleLookup)
	mux.HandleFunc("GET /v1/keys/{key}", h.handleKey)
	mux.HandleFunc("GET /v1/matches/{kind}", h.handleMatches)
	mux.HandleFunc("GET /v1/sources", h.handleSources)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	return cors(mux)
}

type handler struct {
	eps endpoints
	svc *Service
}

// requestContext tags the context with the transport and the caller's request id.
func requestContext(r *http.Request) context.Context {
	ctx := kit.WithTransport(r.Context(), "http")
	if id := r.Header.Get("X-Request-ID"); id != "" {
		ctx = kit.WithRequestID(ctx, id)
	}
	return ctx
}

// --- normalize ---

type httpNormalizeRequest struct {
	Name *string `json:"name"`
}

func (h *handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16*1024)
	var req httpNormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.serve(w, r, h.eps.normalize, &normalizeReq{Name: req.Name})
}

// --- match ---

type httpMatchRequest struct {
	Name1     *string `json:"name1"`
	Name2     *string `json:"name2"`
	Threshold any     `json:"threshold"`
}

func (h *handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16*1024)
	var req httpMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t := h.svc.DefaultThreshold
	if req.Threshold != nil {
		var err error
		if t, err = names.ParseThresholdValue(req.Threshold); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	h.serve(w, r, h.eps.match, &matchReq{Name1: req.Name1, Name2: req.Name2, Threshold: t})
}

// --- add names ---

type httpAddNamesRequest struct {
	Names []string `json:"names"`
	IDs   []string `json:"ids"`
}

func (h *handler) handleAddNames(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB max
	var req httpAddNamesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.serve(w, r, h.eps.addNames, &addNamesReq{Names: req.Names, IDs: req.IDs})
}

// --- lookup ---

func (h *handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	h.serve(w, r, h.eps.lookup, &lookupReq{Name: name})
}

// --- keys ---

func (h *handler) handleKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}
	h.serve(w, r, h.eps.key, &keyReq{Key: key})
}

func (h *handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.matches, &matchesReq{Kind: r.PathValue("kind")})
}

// --- sources ---

func (h *handler) handleSources(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.eps.sources, nil)
}

// --- health ---

type healthResponse struct {
	Status string      `json:"status"`
	Stats  names.Stats `json:"stats"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Stats: h.svc.Directory.Stats()})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(requestContext(r), req)
	if err != nil {
		code := http.StatusInternalServerError
		if isClientError(err) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
