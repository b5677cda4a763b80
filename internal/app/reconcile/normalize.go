package reconcile

import (
	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
)

// extraFunc extracts one game's optional profile fields from a raw record.
// Extractors see already-parsed optional values (Record.OptInt absorbs the
// absence sentinel), so they only decide which keys exist in the output.
type extraFunc func(rec peerclient.Record, extra map[string]any)

// gameExtras routes per-game field extraction. Supporting a new title is
// one entry here; games without an entry normalize to the core fields
// alone.
var gameExtras = map[domain.Game]extraFunc{
	domain.GameDance:   danceExtras,
	domain.GameKeybeat: keybeatExtras,
	domain.GamePop:     popExtras,
	domain.GameReflect: reflectExtras,
}

// normalizeRecord turns a raw record into a canonical profile. It never
// fails: malformed or missing fields read as absent. The caller owns the
// returned profile outright.
func normalizeRecord(rec peerclient.Record, game domain.Game, version int, refID domain.RefID, extID domain.ExtID) *domain.Profile {
	p := &domain.Profile{
		Name:    rec.Name(),
		Game:    game,
		Version: version,
		RefID:   refID,
		ExtID:   extID,
		Extra:   map[string]any{},
	}
	if extract := gameExtras[game]; extract != nil {
		extract(rec, p.Extra)
	}
	return p
}

func danceExtras(rec peerclient.Record, extra map[string]any) {
	if area, ok := rec.OptInt("area"); ok {
		extra["area"] = area
	}
}

var qproParts = []string{"head", "hair", "face", "body", "hand"}

func keybeatExtras(rec peerclient.Record, extra map[string]any) {
	if area, ok := rec.OptInt("area"); ok {
		extra["pid"] = area
	}

	// Avatar parts are copied individually; an absent part stays absent
	// rather than being defaulted.
	qpro := map[string]any{}
	raw := rec.OptRecord("qpro")
	for _, part := range qproParts {
		if v, ok := raw.OptInt(part); ok {
			qpro[part] = v
		}
	}
	extra["qpro"] = qpro
}

func popExtras(rec peerclient.Record, extra map[string]any) {
	if chara, ok := rec.OptInt("character"); ok {
		extra["chara"] = chara
	}
}

func reflectExtras(rec peerclient.Record, extra map[string]any) {
	if icon, ok := rec.OptInt("icon"); ok {
		extra["config"] = map[string]any{"icon_id": icon}
	}
}
