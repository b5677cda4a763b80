package domain

// Game tags a title series. The tag is open-ended: profiles for games this
// server has no special handling for still round-trip with their core
// fields intact.
type Game string

// Titles with per-game profile fields this server understands.
const (
	GameDance   Game = "dance"
	GameKeybeat Game = "keybeat"
	GameJubilee Game = "jubilee"
	GameMuse    Game = "muse"
	GamePop     Game = "pop"
	GameReflect Game = "reflect"
	GameStrum   Game = "strum"
)

// VersionUnknown is the reserved version sentinel attached to profiles that
// were only a partial match: the profile exists for the card, but not
// confirmed for the requested release.
const VersionUnknown = 0
