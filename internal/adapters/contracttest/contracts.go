// Package contracttest holds the behavioral contract every userstore.Store
// implementation must satisfy. The same suite runs against the memory
// adapter (always) and the Postgres adapter (when a test database is
// available), so the two cannot drift apart.
package contracttest

import (
	"context"
	"errors"
	"testing"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

// SeededStore is a userstore.Store plus the write hooks the suite needs to
// arrange fixtures. The write path is adapter-specific on purpose; it is
// not part of the read-side port.
type SeededStore interface {
	userstore.Store

	AddUser(ctx context.Context) (domain.UserID, error)
	PutCard(ctx context.Context, card domain.CardID, user domain.UserID) error
	PutProfile(ctx context.Context, game domain.Game, version int, user domain.UserID, name string, extra map[string]any) error
}

type StoreFactory func(t *testing.T) (SeededStore, func())

func RunUserStore(t *testing.T, newStore StoreFactory) {
	t.Helper()

	run := func(name string, fn func(t *testing.T, store SeededStore)) {
		t.Run(name, func(t *testing.T) {
			store, cleanup := newStore(t)
			if cleanup != nil {
				t.Cleanup(cleanup)
			}
			fn(t, store)
		})
	}

	run("CardLookup", testCardLookup)
	run("RefIDMintingIsStable", testRefIDMintingIsStable)
	run("RefIDsForVirtualUsers", testRefIDsForVirtualUsers)
	run("ProfileRoundTrip", testProfileRoundTrip)
	run("AnyProfileFallsBackToHighestVersion", testAnyProfileFallback)
	run("BatchKeepsRequestOrder", testBatchKeepsRequestOrder)
	run("Enumeration", testEnumeration)
}

const (
	game    = domain.GameDance
	version = 17
)

func testCardLookup(t *testing.T, store SeededStore) {
	ctx := context.Background()

	user, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if user.IsVirtual() {
		t.Fatalf("store minted an id in the virtual space: %q", user)
	}
	if err := store.PutCard(ctx, "e004beef00000001", user); err != nil {
		t.Fatalf("PutCard: %v", err)
	}

	// Lookup is case-insensitive because cards normalize on write and read.
	got, err := store.FromCard(ctx, "E004BEEF00000001")
	if err != nil || got != user {
		t.Fatalf("FromCard: got (%q, %v), want %q", got, err, user)
	}

	if _, err := store.FromCard(ctx, "E004000000009999"); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("unknown card: got %v, want ErrNotFound", err)
	}
}

func testRefIDMintingIsStable(t *testing.T, store SeededStore) {
	ctx := context.Background()

	user, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	refID, err := store.GetRefID(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetRefID: %v", err)
	}
	extID, err := store.GetExtID(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetExtID: %v", err)
	}

	again, err := store.GetRefID(ctx, game, version, user)
	if err != nil || again != refID {
		t.Fatalf("GetRefID not stable: (%q, %v) vs %q", again, err, refID)
	}

	// Minted IDs resolve back to the user.
	if got, err := store.FromRefID(ctx, game, version, refID); err != nil || got != user {
		t.Fatalf("FromRefID: got (%q, %v), want %q", got, err, user)
	}
	if got, err := store.FromExtID(ctx, game, version, extID); err != nil || got != user {
		t.Fatalf("FromExtID: got (%q, %v), want %q", got, err, user)
	}

	// A different version mints a different ref.
	other, err := store.GetRefID(ctx, game, version+1, user)
	if err != nil {
		t.Fatalf("GetRefID v+1: %v", err)
	}
	if other == refID {
		t.Fatalf("versions must not share refids")
	}
}

func testRefIDsForVirtualUsers(t *testing.T, store SeededStore) {
	ctx := context.Background()

	virtual := domain.VirtualUser("E004CAFE00000001")
	refID, err := store.GetRefID(ctx, game, version, virtual)
	if err != nil {
		t.Fatalf("GetRefID for virtual user: %v", err)
	}
	got, err := store.FromRefID(ctx, game, version, refID)
	if err != nil || got != virtual {
		t.Fatalf("virtual ref must resolve back: got (%q, %v)", got, err)
	}
}

func testProfileRoundTrip(t *testing.T, store SeededStore) {
	ctx := context.Background()

	user, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	// Absence is an answer, not an error.
	p, err := store.GetProfile(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetProfile before save: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}

	if err := store.PutProfile(ctx, game, version, user, "DANCER", map[string]any{"area": 12}); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
	p, err = store.GetProfile(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p == nil || p.Name != "DANCER" || p.Game != game || p.Version != version {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.RefID == "" || p.ExtID == 0 {
		t.Fatalf("profile must come back with minted ref/ext ids: %+v", p)
	}

	// Returned profiles are independently owned.
	p.Extra["area"] = 99
	p2, err := store.GetProfile(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetProfile again: %v", err)
	}
	if got, ok := p2.Extra["area"]; !ok || got == 99 {
		t.Fatalf("stored profile mutated through a returned copy: %v", p2.Extra)
	}
}

func testAnyProfileFallback(t *testing.T, store SeededStore) {
	ctx := context.Background()

	user, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := store.PutProfile(ctx, game, version-2, user, "OLD", nil); err != nil {
		t.Fatalf("PutProfile old: %v", err)
	}
	if err := store.PutProfile(ctx, game, version-1, user, "NEWER", nil); err != nil {
		t.Fatalf("PutProfile newer: %v", err)
	}

	p, err := store.GetAnyProfile(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetAnyProfile: %v", err)
	}
	if p == nil || p.Name != "NEWER" || p.Version != version-1 {
		t.Fatalf("fallback must pick the highest version, got %+v", p)
	}

	// Exact profile wins once present.
	if err := store.PutProfile(ctx, game, version, user, "CURRENT", nil); err != nil {
		t.Fatalf("PutProfile current: %v", err)
	}
	p, err = store.GetAnyProfile(ctx, game, version, user)
	if err != nil {
		t.Fatalf("GetAnyProfile: %v", err)
	}
	if p == nil || p.Name != "CURRENT" {
		t.Fatalf("exact profile must win, got %+v", p)
	}
}

func testBatchKeepsRequestOrder(t *testing.T, store SeededStore) {
	ctx := context.Background()

	withProfile, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	without, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := store.PutProfile(ctx, game, version, withProfile, "HAS-ONE", nil); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}

	got, err := store.GetAnyProfiles(ctx, game, version, []domain.UserID{without, withProfile})
	if err != nil {
		t.Fatalf("GetAnyProfiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected one entry per requested user, got %+v", got)
	}
	if got[0].User != without || got[0].Profile != nil {
		t.Fatalf("profile-less user must appear with nil profile: %+v", got[0])
	}
	if got[1].User != withProfile || got[1].Profile == nil || got[1].Profile.Name != "HAS-ONE" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func testEnumeration(t *testing.T, store SeededStore) {
	ctx := context.Background()

	a, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	b, err := store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := store.PutCard(ctx, "E004000000000011", a); err != nil {
		t.Fatalf("PutCard: %v", err)
	}
	if err := store.PutCard(ctx, "E004000000000012", b); err != nil {
		t.Fatalf("PutCard: %v", err)
	}
	if err := store.PutProfile(ctx, game, version, a, "A", nil); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
	// A profile on another version must not leak into the enumeration.
	if err := store.PutProfile(ctx, game, version+1, b, "B-NEXT", nil); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}

	cards, err := store.GetAllCards(ctx)
	if err != nil {
		t.Fatalf("GetAllCards: %v", err)
	}
	if len(cards) != 2 || cards[0].Card != "E004000000000011" || cards[1].Card != "E004000000000012" {
		t.Fatalf("cards must enumerate ordered by card: %+v", cards)
	}

	profiles, err := store.GetAllProfiles(ctx, game, version)
	if err != nil {
		t.Fatalf("GetAllProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].User != a || profiles[0].Profile.Name != "A" {
		t.Fatalf("enumeration must cover exactly (game, version): %+v", profiles)
	}
}
