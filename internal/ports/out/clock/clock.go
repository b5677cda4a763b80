package clock

import "time"

// Clock supplies time to the adapters that stamp rows (minted refids,
// card registrations). An interface keeps those stamps deterministic in
// tests.
type Clock interface {
	Now() time.Time
}
