package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arcadium-net/profile-federation-api/internal/app/reconcile"
	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

// Server is the HTTP adapter over the reconciliation service. The store is
// held directly as well: the federation endpoint serves local data only and
// must not recurse into the peer fan-out.
type Server struct {
	Recon *reconcile.Service
	Store userstore.Store
}

func NewServer(recon *reconcile.Service, store userstore.Store) *Server {
	return &Server{Recon: recon, Store: store}
}

type userResponse struct {
	UserID  string `json:"user_id"`
	Virtual bool   `json:"virtual"`
}

func (s *Server) handleUserByCard(w http.ResponseWriter, r *http.Request) {
	card := domain.CardID(chi.URLParam(r, "card"))
	if card == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "missing card", nil)
		return
	}
	user, err := s.Recon.FromCard(r.Context(), card)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "card lookup failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{UserID: string(user), Virtual: user.IsVirtual()})
}

func (s *Server) handleUserByRefID(w http.ResponseWriter, r *http.Request) {
	game, version, ok := gameVersion(w, r)
	if !ok {
		return
	}
	refID := domain.RefID(chi.URLParam(r, "refid"))
	user, err := s.Recon.FromRefID(r.Context(), game, version, refID)
	if errors.Is(err, userstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "USER_NOT_FOUND", "no user for refid", nil)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "refid lookup failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{UserID: string(user), Virtual: user.IsVirtual()})
}

func (s *Server) handleUserByExtID(w http.ResponseWriter, r *http.Request) {
	game, version, ok := gameVersion(w, r)
	if !ok {
		return
	}
	raw := chi.URLParam(r, "extid")
	extID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "extid must be an integer", nil)
		return
	}
	user, err := s.Recon.FromExtID(r.Context(), game, version, domain.ExtID(extID))
	if errors.Is(err, userstore.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "USER_NOT_FOUND", "no user for extid", nil)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "extid lookup failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{UserID: string(user), Virtual: user.IsVirtual()})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	game, version, ok := gameVersion(w, r)
	if !ok {
		return
	}
	user := domain.UserID(chi.URLParam(r, "user"))

	var (
		profile *domain.Profile
		err     error
	)
	switch match := r.URL.Query().Get("match"); match {
	case "", "exact":
		profile, err = s.Recon.GetProfile(r.Context(), game, version, user)
	case "any":
		profile, err = s.Recon.GetAnyProfile(r.Context(), game, version, user)
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "match must be exact or any", map[string]any{"match": match})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_FAILURE", "profile lookup failed", nil)
		return
	}
	if profile == nil {
		writeError(w, r, http.StatusNotFound, "PROFILE_NOT_FOUND", "no profile for user", nil)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type batchRequest struct {
	UserIDs []string `json:"user_ids"`
}

type batchEntry struct {
	UserID  string          `json:"user_id"`
	Profile *domain.Profile `json:"profile"`
}

type batchResponse struct {
	Results []batchEntry `json:"results"`
}

func (s *Server) handleBatchProfiles(w http.ResponseWriter, r *http.Request) {
	game, version, ok := gameVersion(w, r)
	if !ok {
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "malformed request body", nil)
		return
	}

	users := make([]domain.UserID, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		users = append(users, domain.UserID(id))
	}
	results, err := s.Recon.GetAnyProfiles(r.Context(), game, version, users)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_FAILURE", "batch lookup failed", nil)
		return
	}

	resp := batchResponse{Results: make([]batchEntry, 0, len(results))}
	for _, up := range results {
		resp.Results = append(resp.Results, batchEntry{UserID: string(up.User), Profile: up.Profile})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAllProfiles(w http.ResponseWriter, r *http.Request) {
	game, version, ok := gameVersion(w, r)
	if !ok {
		return
	}
	results, err := s.Recon.GetAllProfiles(r.Context(), game, version)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_FAILURE", "profile enumeration failed", nil)
		return
	}

	resp := batchResponse{Results: make([]batchEntry, 0, len(results))}
	for _, up := range results {
		resp.Results = append(resp.Results, batchEntry{UserID: string(up.User), Profile: up.Profile})
	}
	writeJSON(w, http.StatusOK, resp)
}

// gameVersion pulls the (game, version) pair out of the route. Game tags
// are open-ended; only the version needs validating.
func gameVersion(w http.ResponseWriter, r *http.Request) (domain.Game, int, bool) {
	game := domain.Game(chi.URLParam(r, "game"))
	raw := chi.URLParam(r, "version")
	version, err := strconv.Atoi(raw)
	if err != nil || version < 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "version must be a non-negative integer", map[string]any{"version": raw})
		return "", 0, false
	}
	return game, version, true
}
