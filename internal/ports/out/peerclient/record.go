package peerclient

import (
	"encoding/json"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
)

// Match is the quality marker a peer attaches to a returned record.
type Match string

const (
	// MatchExact means the peer confirms the profile is for the requested
	// game and version.
	MatchExact Match = "exact"
	// MatchPartial means the profile exists for the card but was not
	// confirmed for the requested version. Absent markers default to
	// partial.
	MatchPartial Match = "partial"
)

// Wire keys peers use for record metadata.
const (
	FieldCards = "cards"
	FieldMatch = "match"
	FieldName  = "name"
)

// Record is the untyped profile payload a peer returns (or the local store
// serves to peers). Field access goes through the helper methods, which
// also absorb the legacy "-1 means absent" sentinel so nothing downstream
// has to know about it.
type Record map[string]any

// Cards returns the record's card list, case-normalized. A missing or
// malformed card list yields nil.
func (r Record) Cards() []domain.CardID {
	raw, ok := r[FieldCards].([]any)
	if !ok {
		return nil
	}
	out := make([]domain.CardID, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, domain.NormalizeCard(domain.CardID(s)))
	}
	return out
}

// Match returns the record's match marker, defaulting to partial.
func (r Record) Match() Match {
	if s, ok := r[FieldMatch].(string); ok && Match(s) == MatchExact {
		return MatchExact
	}
	return MatchPartial
}

// Name returns the record's display name, defaulting to "".
func (r Record) Name() string {
	s, _ := r[FieldName].(string)
	return s
}

// OptInt fetches an optional integer field. It reports ok=false when the
// field is absent, not a number, or carries the -1 absence sentinel.
// JSON-decoded numbers (float64 and json.Number) are accepted alongside
// native ints.
func (r Record) OptInt(key string) (int, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		n = int(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, false
		}
		n = int(i)
	default:
		return 0, false
	}
	if n == -1 {
		return 0, false
	}
	return n, true
}

// OptRecord fetches a nested record field, so sub-objects get the same
// optional-field treatment. Absent or non-object fields yield an empty
// record.
func (r Record) OptRecord(key string) Record {
	switch t := r[key].(type) {
	case map[string]any:
		return Record(t)
	case Record:
		return t
	default:
		return Record{}
	}
}

// Clone returns an independently-owned copy of the record, one map level
// deep plus nested objects. Merging code copies before stripping so one
// wire record can satisfy several requested cards.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch t := v.(type) {
		case map[string]any:
			out[k] = map[string]any(Record(t).Clone())
		case []any:
			out[k] = append([]any(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// Strip removes transport metadata (card list, match marker) ahead of
// normalization.
func (r Record) Strip() {
	delete(r, FieldCards)
	delete(r, FieldMatch)
}
