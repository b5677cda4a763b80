package domain

import "encoding/json"

// Profile is the canonical per-(game, version) player profile. Instances
// are built fresh per request and never shared: every producer hands the
// caller an independent value (see Clone).
type Profile struct {
	Name    string
	Game    Game
	Version int
	RefID   RefID
	ExtID   ExtID

	// Extra holds the per-game optional fields (eg. "area", "qpro").
	// Values are JSON-shaped: numbers, strings, and nested
	// map[string]any only.
	Extra map[string]any
}

// UserProfile pairs a user with their profile in batch results. Profile is
// nil when the lookup found nobody: an explicit "no profile" answer, not an
// error.
type UserProfile struct {
	User    UserID
	Profile *Profile
}

// Clone returns an independently-owned copy. Mutating the copy's Extra
// never shows through to the original.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Extra = cloneExtra(p.Extra)
	return &cp
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = cloneExtra(sub)
			continue
		}
		out[k] = v
	}
	return out
}

// MarshalJSON flattens Extra into the top level, producing the flat wire
// shape siblings exchange: {"name": ..., "game": ..., "version": ...,
// "refid": ..., "extid": ..., <per-game fields>}.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["name"] = p.Name
	out["game"] = string(p.Game)
	out["version"] = p.Version
	out["refid"] = string(p.RefID)
	out["extid"] = int64(p.ExtID)
	return json.Marshal(out)
}
