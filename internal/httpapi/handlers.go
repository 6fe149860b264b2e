// SPDX-License-Identifier: AGPL-3.0-or-later

package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/cartographus/internal/apperrors"
	"github.com/tomtom215/cartographus/internal/logging"
	"github.com/tomtom215/cartographus/internal/stats"
	"github.com/tomtom215/cartographus/internal/wsdash"
)

// adminMask grants an authenticated admin/relay-slave caller full
// visibility, including Hidden nodes, mirroring the original's
// unrestricted admin view.
const adminMask = stats.Public | stats.Slave | stats.General | stats.Counters | stats.Regular | stats.Hidden

// Handler holds the dependencies every admin route needs.
type Handler struct {
	Engine      *stats.Engine
	Hub         *wsdash.Hub
	Issuer      *TokenIssuer
	AdminSecret string
	upgrader    websocket.Upgrader
}

// NewHandler builds a Handler. originAllowed, when non-nil, gates
// WebSocket upgrade requests the same way the CORS middleware gates
// plain HTTP requests; a nil originAllowed accepts any origin.
func NewHandler(engine *stats.Engine, hub *wsdash.Hub, issuer *TokenIssuer, adminSecret string, originAllowed func(string) bool) *Handler {
	return &Handler{
		Engine:      engine,
		Hub:         hub,
		Issuer:      issuer,
		AdminSecret: adminSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if originAllowed == nil {
					return true
				}
				return originAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// Health reports liveness; it never requires authentication.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Secret string `json:"secret"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the shared admin secret for a bearer token, the
// stand-in for the original's relay-password handshake.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.AdminSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, apperrors.ErrInvalidBearerToken)
		return
	}
	token, err := h.Issuer.Issue("admin")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: time.Now().Add(h.Issuer.ttl)})
}

// StatsXML serves the <icestats> snapshot document, optionally scoped
// to a single mount via ?mount=, matching stats_get_xml.
func (h *Handler) StatsXML(w http.ResponseWriter, r *http.Request) {
	filter := stats.SnapshotFilter{Flags: adminMask, ShowMount: mountParam(r)}
	doc, err := h.Engine.Snapshot(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Streams serves the plain-text mount streamlist in ~4 KB blocks,
// matching the original's streamlist handler.
func (h *Handler) Streams(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	for _, block := range h.Engine.Streamlist(true) {
		if _, err := w.Write(block); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// StatsStream registers the caller as a line-protocol subscriber
// (spec.md §4.4) and streams frames until the client disconnects,
// serving the relay-slave use case the original's /admin/stats
// endpoint does via hijacked socket.
func (h *Handler) StatsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, apperrors.ErrStoreClosed)
		return
	}

	sub := h.Engine.RegisterSubscriber(adminMask)
	defer h.Engine.UnregisterSubscriber(sub.ID)

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		written, hitBudget, err := sub.Send(w)
		if err != nil {
			return
		}
		flusher.Flush()

		if sub.Errored() {
			logging.Warn().Uint64("subscriber_id", sub.ID).Msg("admin stats stream subscriber evicted")
			return
		}

		timer.Reset(stats.NextSendDelay(written, hitBudget))
	}
}

// WSDashboard upgrades the request to a WebSocket connection and hands
// it to the dashboard Hub.
func (h *Handler) WSDashboard(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("dashboard websocket upgrade failed")
		return
	}
	client := wsdash.NewClient(h.Hub, conn)
	h.Hub.Register <- client
	client.Start()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// mountParam reads the chi-routed {mount} path value, used by routes
// that accept the mount either as a query param or a path segment.
func mountParam(r *http.Request) string {
	if v := chi.URLParam(r, "mount"); v != "" {
		return v
	}
	return r.URL.Query().Get("mount")
}
