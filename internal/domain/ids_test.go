package domain_test

import (
	"errors"
	"testing"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
)

func TestVirtualUser_DeterministicAndInjective(t *testing.T) {
	t.Parallel()

	cards := []domain.CardID{"E004010000000001", "E004010000000002", "ABCD", "ABCE"}
	seen := map[domain.UserID]domain.CardID{}
	for _, c := range cards {
		u := domain.VirtualUser(c)
		if u != domain.VirtualUser(c) {
			t.Fatalf("derivation not stable for %q", c)
		}
		if prev, ok := seen[u]; ok {
			t.Fatalf("collision: %q and %q both derive %q", prev, c, u)
		}
		seen[u] = c
	}
}

func TestVirtualUser_CaseInsensitive(t *testing.T) {
	t.Parallel()

	if domain.VirtualUser("e004aabb") != domain.VirtualUser("E004AABB") {
		t.Fatalf("derivation must normalize card case")
	}
}

func TestUserID_CardRoundTrip(t *testing.T) {
	t.Parallel()

	card := domain.CardID("E004010000000001")
	u := domain.VirtualUser(card)
	if !u.IsVirtual() {
		t.Fatalf("derived id %q not recognized as virtual", u)
	}
	got, err := u.Card()
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if got != card {
		t.Fatalf("round trip: got %q, want %q", got, card)
	}
	if domain.VirtualUser(got) != u {
		t.Fatalf("re-derivation changed the id")
	}
}

func TestUserID_CardOnLocalIDFails(t *testing.T) {
	t.Parallel()

	local := domain.UserID("2f1b9c7e-8f14-4a52-9d8a-0c6f1f3b1a01")
	if local.IsVirtual() {
		t.Fatalf("uuid-style id misclassified as virtual")
	}
	if _, err := local.Card(); !errors.Is(err, domain.ErrNotVirtual) {
		t.Fatalf("Card on local id: got %v, want ErrNotVirtual", err)
	}
}

func TestNormalizeCard(t *testing.T) {
	t.Parallel()

	if got := domain.NormalizeCard("  e004aabb "); got != "E004AABB" {
		t.Fatalf("NormalizeCard: got %q", got)
	}
}
