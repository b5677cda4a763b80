package userstore

import (
	"context"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
)

// CardMapping is one row of the card table: a physical card bound to the
// local user who registered it.
type CardMapping struct {
	Card domain.CardID
	User domain.UserID
}

// Store is the read-side port onto the locally-owned user data.
//
// Profile getters return (nil, nil) when no profile exists: absence is a
// normal answer, not an error. Identity lookups return ErrNotFound when the
// store has no mapping.
//
// GetRefID and GetExtID mint on first use and must not fail for a valid
// identity; they accept virtual user IDs, and the minted row is persisted
// so FromRefID/FromExtID later resolve remote-only players.
type Store interface {
	GetRefID(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.RefID, error)
	GetExtID(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.ExtID, error)

	// GetProfile returns the profile stored for exactly (game, version).
	GetProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error)
	// GetAnyProfile prefers the (game, version) profile and falls back to
	// the profile from the highest version of the same game.
	GetAnyProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error)
	// GetAnyProfiles returns one entry per requested user, in request
	// order, with a nil profile for users that have none.
	GetAnyProfiles(ctx context.Context, game domain.Game, version int, users []domain.UserID) ([]domain.UserProfile, error)

	// GetAllCards returns every card mapping, ordered by card.
	GetAllCards(ctx context.Context) ([]CardMapping, error)
	// GetAllProfiles returns every (user, profile) stored for exactly
	// (game, version), deterministically ordered.
	GetAllProfiles(ctx context.Context, game domain.Game, version int) ([]domain.UserProfile, error)

	FromCard(ctx context.Context, card domain.CardID) (domain.UserID, error)
	FromRefID(ctx context.Context, game domain.Game, version int, refID domain.RefID) (domain.UserID, error)
	FromExtID(ctx context.Context, game domain.Game, version int, extID domain.ExtID) (domain.UserID, error)
}
