package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

type federationRequest struct {
	Game    string   `json:"game"`
	Version int      `json:"version"`
	IDType  string   `json:"id_type"`
	Cards   []string `json:"cards"`
}

type federationResponse struct {
	Profiles []peerclient.Record `json:"profiles"`
}

// handleFederation answers sibling servers. Only locally-owned data is
// served; the fan-out engine is never consulted, so two federated servers
// cannot ping-pong a query between each other.
func (s *Server) handleFederation(w http.ResponseWriter, r *http.Request) {
	var req federationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "malformed request body", nil)
		return
	}
	if req.Game == "" || req.Version < 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "game and non-negative version required", nil)
		return
	}
	idType := peerclient.IDType(req.IDType)
	if idType != peerclient.IDTypeCard && idType != peerclient.IDTypeServer {
		writeError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", "id_type must be card or server", map[string]any{"id_type": req.IDType})
		return
	}

	ctx := r.Context()
	game := domain.Game(req.Game)

	mappings, err := s.Store.GetAllCards(ctx)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "card enumeration failed", nil)
		return
	}
	cardsOf := make(map[domain.UserID][]string)
	for _, m := range mappings {
		cardsOf[m.User] = append(cardsOf[m.User], string(m.Card))
	}

	resp := federationResponse{Profiles: []peerclient.Record{}}

	switch idType {
	case peerclient.IDTypeCard:
		seen := map[domain.UserID]bool{}
		for _, raw := range req.Cards {
			user, err := s.Store.FromCard(ctx, domain.CardID(raw))
			if errors.Is(err, userstore.ErrNotFound) {
				continue
			}
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "INTERNAL", "card lookup failed", nil)
				return
			}
			if seen[user] {
				// Two requested cards can belong to one user; answer once.
				continue
			}
			seen[user] = true

			profile, match, err := s.localProfile(ctx, game, req.Version, user)
			if err != nil {
				writeError(w, r, http.StatusInternalServerError, "INTERNAL", "profile lookup failed", nil)
				return
			}
			if profile == nil {
				continue
			}
			resp.Profiles = append(resp.Profiles, servedRecord(profile, cardsOf[user], match))
		}

	case peerclient.IDTypeServer:
		all, err := s.Store.GetAllProfiles(ctx, game, req.Version)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "INTERNAL", "profile enumeration failed", nil)
			return
		}
		for _, up := range all {
			resp.Profiles = append(resp.Profiles, servedRecord(up.Profile, cardsOf[up.User], string(peerclient.MatchExact)))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// localProfile prefers the exact (game, version) profile and reports the
// match quality the federation protocol expects.
func (s *Server) localProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, string, error) {
	profile, err := s.Store.GetProfile(ctx, game, version, user)
	if err != nil {
		return nil, "", err
	}
	if profile != nil {
		return profile, string(peerclient.MatchExact), nil
	}
	profile, err = s.Store.GetAnyProfile(ctx, game, version, user)
	if err != nil {
		return nil, "", err
	}
	return profile, string(peerclient.MatchPartial), nil
}

// servedRecord flattens a profile into the wire record shape and attaches
// the card list and match marker. Server-local identifiers are stripped:
// the consumer mints its own.
func servedRecord(profile *domain.Profile, cards []string, match string) peerclient.Record {
	raw, _ := json.Marshal(profile)
	var flat map[string]any
	_ = json.Unmarshal(raw, &flat)
	rec := peerclient.Record(flat)
	delete(rec, "refid")
	delete(rec, "extid")
	delete(rec, "game")
	delete(rec, "version")

	if cards == nil {
		cards = []string{}
	}
	asAny := make([]any, 0, len(cards))
	for _, c := range cards {
		asAny = append(asAny, c)
	}
	rec[peerclient.FieldCards] = asAny
	rec[peerclient.FieldMatch] = match
	return rec
}
