package userstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	clockport "github.com/arcadium-net/profile-federation-api/internal/ports/out/clock"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

type profileKey struct {
	game    domain.Game
	version int
	user    domain.UserID
}

type storedProfile struct {
	name    string
	extra   map[string]any
	savedAt time.Time
}

type refRow struct {
	refID     domain.RefID
	extID     domain.ExtID
	createdAt time.Time
}

// Store is an in-memory implementation of userstore.Store. It is safe for
// concurrent use and backs both tests and the dev storage backend.
type Store struct {
	mu  sync.RWMutex
	clk clockport.Clock

	userCards map[domain.CardID]domain.UserID
	profiles  map[profileKey]storedProfile
	refs      map[profileKey]refRow
	nextExtID domain.ExtID
}

func NewStore(clk clockport.Clock) *Store {
	return &Store{
		clk:       clk,
		userCards: make(map[domain.CardID]domain.UserID),
		profiles:  make(map[profileKey]storedProfile),
		refs:      make(map[profileKey]refRow),
		nextExtID: 1,
	}
}

// AddUser mints a new local user. Minted IDs are UUID strings, which keeps
// them disjoint from the virtual ID space.
func (s *Store) AddUser(ctx context.Context) (domain.UserID, error) {
	_ = ctx
	return domain.UserID(uuid.NewString()), nil
}

// PutCard binds a card to a local user.
func (s *Store) PutCard(ctx context.Context, card domain.CardID, user domain.UserID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userCards[domain.NormalizeCard(card)] = user
	return nil
}

// PutProfile stores a profile payload for (game, version, user).
func (s *Store) PutProfile(ctx context.Context, game domain.Game, version int, user domain.UserID, name string, extra map[string]any) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profileKey{game, version, user}] = storedProfile{
		name:    name,
		extra:   extra,
		savedAt: s.clk.Now(),
	}
	return nil
}

func (s *Store) GetRefID(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.RefID, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refLocked(profileKey{game, version, user}).refID, nil
}

func (s *Store) GetExtID(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.ExtID, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refLocked(profileKey{game, version, user}).extID, nil
}

// refLocked returns the ref row for the key, minting one on first use.
// Callers must hold the write lock.
func (s *Store) refLocked(key profileKey) refRow {
	if row, ok := s.refs[key]; ok {
		return row
	}
	row := refRow{
		refID:     mintRefID(),
		extID:     s.nextExtID,
		createdAt: s.clk.Now(),
	}
	s.nextExtID++
	s.refs[key] = row
	return row
}

func mintRefID() domain.RefID {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return domain.RefID(raw[:16])
}

func (s *Store) GetProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileLocked(profileKey{game, version, user}), nil
}

func (s *Store) GetAnyProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anyProfileLocked(game, version, user), nil
}

func (s *Store) GetAnyProfiles(ctx context.Context, game domain.Game, version int, users []domain.UserID) ([]domain.UserProfile, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(users))
	for _, user := range users {
		out = append(out, domain.UserProfile{
			User:    user,
			Profile: s.anyProfileLocked(game, version, user),
		})
	}
	return out, nil
}

// anyProfileLocked prefers the exact (game, version) profile and falls back
// to the highest version of the same game.
func (s *Store) anyProfileLocked(game domain.Game, version int, user domain.UserID) *domain.Profile {
	if p := s.profileLocked(profileKey{game, version, user}); p != nil {
		return p
	}
	best := -1
	for key := range s.profiles {
		if key.game == game && key.user == user && key.version > best {
			best = key.version
		}
	}
	if best < 0 {
		return nil
	}
	return s.profileLocked(profileKey{game, best, user})
}

// profileLocked materializes the canonical profile for an exact key, with
// the ref/ext IDs attached (minting them on first read). Callers must hold
// the write lock.
func (s *Store) profileLocked(key profileKey) *domain.Profile {
	stored, ok := s.profiles[key]
	if !ok {
		return nil
	}
	ref := s.refLocked(key)
	p := &domain.Profile{
		Name:    stored.name,
		Game:    key.game,
		Version: key.version,
		RefID:   ref.refID,
		ExtID:   ref.extID,
		Extra:   stored.extra,
	}
	// Hand out an independent copy; the stored extra map stays private.
	return p.Clone()
}

func (s *Store) GetAllCards(ctx context.Context) ([]userstore.CardMapping, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]userstore.CardMapping, 0, len(s.userCards))
	for card, user := range s.userCards {
		out = append(out, userstore.CardMapping{Card: card, User: user})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Card < out[j].Card })
	return out, nil
}

func (s *Store) GetAllProfiles(ctx context.Context, game domain.Game, version int) ([]domain.UserProfile, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]profileKey, 0)
	for key := range s.profiles {
		if key.game == game && key.version == version {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].user < keys[j].user })
	out := make([]domain.UserProfile, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.UserProfile{User: key.user, Profile: s.profileLocked(key)})
	}
	return out, nil
}

func (s *Store) FromCard(ctx context.Context, card domain.CardID) (domain.UserID, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.userCards[domain.NormalizeCard(card)]
	if !ok {
		return "", userstore.ErrNotFound
	}
	return user, nil
}

func (s *Store) FromRefID(ctx context.Context, game domain.Game, version int, refID domain.RefID) (domain.UserID, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, row := range s.refs {
		if key.game == game && key.version == version && row.refID == refID {
			return key.user, nil
		}
	}
	return "", userstore.ErrNotFound
}

func (s *Store) FromExtID(ctx context.Context, game domain.Game, version int, extID domain.ExtID) (domain.UserID, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, row := range s.refs {
		if key.game == game && key.version == version && row.extID == extID {
			return key.user, nil
		}
	}
	return "", userstore.ErrNotFound
}
