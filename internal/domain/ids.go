package domain

import (
	"errors"
	"strings"
)

// CardID is the unique token printed on a physical card. It is
// case-insensitive on the wire; every comparison in this codebase happens
// on the normalized (uppercase) form.
type CardID string

// UserID is an internal identifier for a player. Local IDs are minted by
// the user store. Virtual IDs are derived from a card identifier with
// VirtualUser and are never persisted as users: they name players that only
// exist on sibling servers.
type UserID string

// RefID is the per-(game, version, user) reference identifier minted by the
// local store. Opaque to the reconciliation engine.
type RefID string

// ExtID is the per-(game, version, user) numeric identifier minted by the
// local store. Opaque to the reconciliation engine.
type ExtID int64

// virtualPrefix marks user IDs derived from a card. The store never mints a
// local ID with this prefix, which keeps the two ID spaces disjoint.
const virtualPrefix = "remote:"

// ErrNotVirtual reports misuse: asking for the card behind a local user ID.
// Callers must check IsVirtual first; hitting this error is a programming
// error, not a runtime condition.
var ErrNotVirtual = errors.New("user id is not virtual")

// NormalizeCard canonicalizes a card identifier for comparison and storage.
func NormalizeCard(card CardID) CardID {
	return CardID(strings.ToUpper(strings.TrimSpace(string(card))))
}

// VirtualUser derives the virtual user ID for a card. The derivation is
// total, deterministic and injective: the same card always yields the same
// ID and distinct cards never collide.
func VirtualUser(card CardID) UserID {
	return UserID(virtualPrefix + string(NormalizeCard(card)))
}

// IsVirtual reports whether the ID was derived from a card rather than
// minted by the local store. It is a pure check; no store lookup happens.
func (u UserID) IsVirtual() bool {
	return strings.HasPrefix(string(u), virtualPrefix)
}

// Card inverts VirtualUser. It fails with ErrNotVirtual for local IDs.
func (u UserID) Card() (CardID, error) {
	if !u.IsVirtual() {
		return "", ErrNotVirtual
	}
	return CardID(strings.TrimPrefix(string(u), virtualPrefix)), nil
}
