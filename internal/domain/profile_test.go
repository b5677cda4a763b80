package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
)

func TestProfile_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := &domain.Profile{
		Name:    "PLAYER",
		Game:    domain.GameKeybeat,
		Version: 28,
		RefID:   "ref-1",
		ExtID:   1234,
		Extra: map[string]any{
			"pid":  13,
			"qpro": map[string]any{"hair": 3},
		},
	}

	cp := p.Clone()
	cp.Extra["pid"] = 47
	cp.Extra["qpro"].(map[string]any)["hair"] = 9

	if p.Extra["pid"] != 13 {
		t.Fatalf("clone mutation leaked into original: pid=%v", p.Extra["pid"])
	}
	if p.Extra["qpro"].(map[string]any)["hair"] != 3 {
		t.Fatalf("clone mutation leaked into nested map")
	}
}

func TestProfile_CloneNil(t *testing.T) {
	t.Parallel()

	var p *domain.Profile
	if p.Clone() != nil {
		t.Fatalf("nil profile must clone to nil")
	}
}

func TestProfile_MarshalJSONFlattensExtra(t *testing.T) {
	t.Parallel()

	p := domain.Profile{
		Name:    "RIVAL",
		Game:    domain.GameDance,
		Version: 17,
		RefID:   "CAFEBABE",
		ExtID:   9000,
		Extra:   map[string]any{"area": 12},
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["name"] != "RIVAL" || got["game"] != "dance" || got["area"] != float64(12) {
		t.Fatalf("unexpected wire shape: %v", got)
	}
	if got["version"] != float64(17) || got["refid"] != "CAFEBABE" || got["extid"] != float64(9000) {
		t.Fatalf("fixed fields missing: %v", got)
	}
}
