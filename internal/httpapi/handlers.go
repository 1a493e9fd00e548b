package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
	"github.com/DoyleJ11/ti4-draft-backend/internal/hub"
	"github.com/DoyleJ11/ti4-draft-backend/internal/session"
	"github.com/DoyleJ11/ti4-draft-backend/internal/store"
	"github.com/DoyleJ11/ti4-draft-backend/pkg/types"
)

// AdminHeader carries the admin secret on HTTP requests.
const AdminHeader = "X-Admin-Secret"

const requestTimeout = 10 * time.Second

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Response{Success: true, Data: data})
}

func sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Response{Success: false, Error: &ErrorInfo{Code: code, Message: message}})
}

func sendErr(w http.ResponseWriter, err error) {
	sendError(w, statusFor(err), codeFor(err), err.Error())
}

func codeFor(err error) string {
	if errors.Is(err, hub.ErrExists) {
		return "DRAFT_EXISTS"
	}
	return session.Code(err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAdminDenied), errors.Is(err, engine.ErrAdminRequired), errors.Is(err, session.ErrRewriteDenied):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrStaleClient), errors.Is(err, session.ErrVersionConflict), errors.Is(err, hub.ErrExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidSetup), errors.Is(err, engine.ErrUnsupportedCommand), errors.Is(err, engine.ErrUnknownSelection):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, session.ErrClosed), errors.Is(err, hub.ErrClosed):
		return http.StatusServiceUnavailable
	case codeFor(err) != "INTERNAL":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CreateDraft handles POST /drafts.
func CreateDraft(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateDraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
			return
		}

		d, err := engine.NewDraft(uuid.NewString(), req.Settings, req.Players)
		if err != nil {
			sendErr(w, err)
			return
		}
		d.Slices = req.Slices
		d.Map = req.Map
		d.AvailableFactions = req.AvailableFactions
		d.AvailableMinorFactions = req.AvailableMinorFactions
		d.Texas = req.Texas

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		if _, err := h.Create(ctx, d); err != nil {
			sendErr(w, err)
			return
		}
		sendSuccess(w, http.StatusCreated, types.Snapshot(0, d))
	}
}

// viewer reads ?player= and the admin header.
func viewer(r *http.Request, gate session.AdminGate) (engine.PlayerID, bool, error) {
	admin, err := gate.Check(r.Header.Get(AdminHeader))
	if err != nil {
		return 0, false, err
	}
	var id engine.PlayerID
	if p := r.URL.Query().Get("player"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false, engine.ErrUnknownPlayer
		}
		id = engine.PlayerID(n)
	}
	return id, admin, nil
}

func state(ctx context.Context, h *hub.Hub, id string) (session.View, error) {
	s, err := h.Open(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	return s.State(ctx)
}

// GetDraft handles GET /drafts/{id}.
func GetDraft(h *hub.Hub, gate session.AdminGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, admin, err := viewer(r, gate)
		if err != nil {
			sendErr(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		v, err := state(ctx, h, chi.URLParam(r, "id"))
		if err != nil {
			sendErr(w, err)
			return
		}
		sendSuccess(w, http.StatusOK, types.Snapshot(v.Version, v.Draft.Redacted(player, admin)))
	}
}

// PostIntent handles POST /drafts/{id}/intents.
func PostIntent(h *hub.Hub, gate session.AdminGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.IntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
			return
		}
		admin, err := gate.Check(r.Header.Get(AdminHeader))
		if err != nil {
			sendErr(w, err)
			return
		}
		cmd, err := req.Intent.Command(req.Actor, req.ExpectedSelections, engine.Caps{Admin: admin, PickForAnyone: req.PickForAnyone})
		if err != nil {
			sendErr(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		s, err := h.Open(ctx, chi.URLParam(r, "id"))
		if err != nil {
			sendErr(w, err)
			return
		}
		res, err := s.Do(ctx, cmd, req.Intent.DryRun)
		if err != nil {
			sendErr(w, err)
			return
		}
		if res.Err != nil {
			sendErr(w, res.Err)
			return
		}
		sendSuccess(w, http.StatusOK, types.ServerMessage{
			Type:     types.MsgResult,
			DraftID:  s.ID(),
			Version:  res.Version,
			Warnings: res.Warnings,
		})
	}
}

// Replay handles GET /drafts/{id}/replay?index=n. Without index the view is
// at the end of the log.
func Replay(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		v, err := state(ctx, h, chi.URLParam(r, "id"))
		if err != nil {
			sendErr(w, err)
			return
		}

		cur := engine.NewCursor(v.Draft)
		cur.JumpToEnd()
		if raw := r.URL.Query().Get("index"); raw != "" {
			i, err := strconv.Atoi(raw)
			if err != nil {
				sendError(w, http.StatusBadRequest, "BAD_INDEX", "index must be an integer")
				return
			}
			if err := cur.Seek(i); err != nil {
				sendError(w, http.StatusBadRequest, "BAD_INDEX", err.Error())
				return
			}
		}
		sendSuccess(w, http.StatusOK, cur.View())
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Healthz reports ok while the hub is accepting requests.
func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := h.Len(r.Context())
		if err != nil {
			sendError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
			return
		}
		sendSuccess(w, http.StatusOK, HealthResponse{Status: "ok", Sessions: n})
	}
}
