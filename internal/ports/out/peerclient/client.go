package peerclient

import (
	"context"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
)

// IDType selects how a peer query is filtered.
type IDType string

const (
	// IDTypeCard queries profiles owned by any of the given cards.
	IDTypeCard IDType = "card"
	// IDTypeServer queries every profile the peer has; the card list is
	// ignored.
	IDTypeServer IDType = "server"
)

// Client is one configured sibling server. Implementations own transport,
// timeout and authentication; callers only see records or an error.
type Client interface {
	// Name identifies the peer in logs and errors.
	Name() string
	GetProfiles(ctx context.Context, game domain.Game, version int, idType IDType, cards []domain.CardID) ([]Record, error)
}
