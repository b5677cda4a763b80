package reconcile

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

// PeerFailurePolicy decides what a single failing peer does to an
// operation that fans out to several.
type PeerFailurePolicy string

const (
	// PolicyDegrade treats a failed peer as an empty response and logs
	// it. A failure still propagates when the failed peer was the only
	// one queried. This is the default.
	PolicyDegrade PeerFailurePolicy = "degrade"
	// PolicyFail aborts the whole operation on the first peer failure
	// (in peer order).
	PolicyFail PeerFailurePolicy = "fail"
)

// Service reconciles profiles across the local store and the configured
// sibling servers. Local users resolve against the store alone; virtual
// users (known only by card) resolve by fanning out to every peer.
type Service struct {
	store userstore.Store
	peers []peerclient.Client

	peerPolicy PeerFailurePolicy
	logger     *log.Logger
}

type Option func(*Service)

// WithPeerFailurePolicy overrides the default degrade policy.
func WithPeerFailurePolicy(p PeerFailurePolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.peerPolicy = p
		}
	}
}

// WithLogger overrides the logger used to report degraded peer fetches.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(store userstore.Store, peers []peerclient.Client, opts ...Option) *Service {
	s := &Service{
		store:      store,
		peers:      peers,
		peerPolicy: PolicyDegrade,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromCard resolves a card to a user ID. Cards unknown to the local store
// resolve to the derived virtual user, so this never reports not-found.
func (s *Service) FromCard(ctx context.Context, card domain.CardID) (domain.UserID, error) {
	user, err := s.store.FromCard(ctx, domain.NormalizeCard(card))
	if errors.Is(err, userstore.ErrNotFound) {
		return domain.VirtualUser(card), nil
	}
	if err != nil {
		return "", err
	}
	return user, nil
}

// FromRefID resolves a reference ID to a user ID. RefIDs are minted locally
// for virtual users too, so the store lookup covers both kinds.
func (s *Service) FromRefID(ctx context.Context, game domain.Game, version int, refID domain.RefID) (domain.UserID, error) {
	return s.store.FromRefID(ctx, game, version, refID)
}

// FromExtID resolves an external ID to a user ID.
func (s *Service) FromExtID(ctx context.Context, game domain.Game, version int, extID domain.ExtID) (domain.UserID, error) {
	return s.store.FromExtID(ctx, game, version, extID)
}

// GetProfile returns the profile for exactly (game, version), or nil when
// none exists. For virtual users only exact-match peer records qualify.
func (s *Service) GetProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error) {
	if user.IsVirtual() {
		return s.profileRequest(ctx, game, version, user, true)
	}
	return s.store.GetProfile(ctx, game, version, user)
}

// GetAnyProfile returns the best available profile for (game, version),
// accepting partial matches. Partial remote matches come back with the
// version set to domain.VersionUnknown.
func (s *Service) GetAnyProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error) {
	if user.IsVirtual() {
		return s.profileRequest(ctx, game, version, user, false)
	}
	return s.store.GetAnyProfile(ctx, game, version, user)
}

// profileRequest resolves one virtual user against the peers. The first
// record (in peer-configuration order) whose card list contains the user's
// card wins; with exact set, partial records are skipped and the scan
// continues. No surviving record means (nil, nil).
func (s *Service) profileRequest(ctx context.Context, game domain.Game, version int, user domain.UserID, exact bool) (*domain.Profile, error) {
	card, err := user.Card()
	if err != nil {
		return nil, err
	}

	refID, err := s.store.GetRefID(ctx, game, version, user)
	if err != nil {
		return nil, err
	}
	extID, err := s.store.GetExtID(ctx, game, version, user)
	if err != nil {
		return nil, err
	}

	records, err := s.fetchRemote(ctx, game, version, peerclient.IDTypeCard, []domain.CardID{card})
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if !containsCard(rec.Cards(), card) {
			continue
		}
		exactMatch := rec.Match() == peerclient.MatchExact
		if exact && !exactMatch {
			continue
		}
		cp := rec.Clone()
		cp.Strip()
		return normalizeRecord(cp, game, versionFor(version, exactMatch), refID, extID), nil
	}
	return nil, nil
}

// GetAnyProfiles resolves a mixed batch of local and virtual users. The
// result has exactly one entry per requested user: local results first (in
// store order), then remote matches in response order, then explicit
// (user, nil) entries for virtual users no peer answered.
func (s *Service) GetAnyProfiles(ctx context.Context, game domain.Game, version int, users []domain.UserID) ([]domain.UserProfile, error) {
	if len(users) == 0 {
		return []domain.UserProfile{}, nil
	}

	var locals, virtuals []domain.UserID
	for _, u := range users {
		if u.IsVirtual() {
			virtuals = append(virtuals, u)
		} else {
			locals = append(locals, u)
		}
	}
	if len(virtuals) == 0 {
		return s.store.GetAnyProfiles(ctx, game, version, locals)
	}

	cardToUser := make(map[domain.CardID]domain.UserID, len(virtuals))
	cards := make([]domain.CardID, 0, len(virtuals))
	for _, u := range virtuals {
		card, err := u.Card()
		if err != nil {
			return nil, err
		}
		cardToUser[card] = u
		cards = append(cards, card)
	}

	var (
		wg        sync.WaitGroup
		remote    []peerclient.Record
		remoteErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		remote, remoteErr = s.fetchRemote(ctx, game, version, peerclient.IDTypeCard, cards)
	}()
	results, localErr := s.store.GetAnyProfiles(ctx, game, version, locals)
	wg.Wait()
	if localErr != nil {
		return nil, localErr
	}
	if remoteErr != nil {
		return nil, remoteErr
	}

	for _, rec := range remote {
		// One wire record can carry several requested cards; each
		// card is satisfied independently with its own copy.
		for _, card := range rec.Cards() {
			user, ok := cardToUser[card]
			if !ok {
				continue
			}
			exactMatch := rec.Match() == peerclient.MatchExact

			refID, err := s.store.GetRefID(ctx, game, version, user)
			if err != nil {
				return nil, err
			}
			extID, err := s.store.GetExtID(ctx, game, version, user)
			if err != nil {
				return nil, err
			}

			cp := rec.Clone()
			cp.Strip()
			results = append(results, domain.UserProfile{
				User:    user,
				Profile: normalizeRecord(cp, game, versionFor(version, exactMatch), refID, extID),
			})
			delete(cardToUser, card)
		}
	}

	// Whatever is left got no answer from any peer. That is a result,
	// not an omission. Leftovers keep the request order.
	for _, card := range cards {
		if user, pending := cardToUser[card]; pending {
			results = append(results, domain.UserProfile{User: user})
		}
	}
	return results, nil
}

// GetAllProfiles enumerates every known profile for (game, version): all
// local profiles plus exact-match peer records for cards the local store
// has never seen. Remote records that overlap the local card table are
// dropped wholesale (local data wins), and partial records never
// materialize a new identity here.
func (s *Service) GetAllProfiles(ctx context.Context, game domain.Game, version int) ([]domain.UserProfile, error) {
	var (
		wg        sync.WaitGroup
		cards     []userstore.CardMapping
		cardsErr  error
		remote    []peerclient.Record
		remoteErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		cards, cardsErr = s.store.GetAllCards(ctx)
	}()
	go func() {
		defer wg.Done()
		remote, remoteErr = s.fetchRemote(ctx, game, version, peerclient.IDTypeServer, nil)
	}()
	local, localErr := s.store.GetAllProfiles(ctx, game, version)
	wg.Wait()
	if localErr != nil {
		return nil, localErr
	}
	if cardsErr != nil {
		return nil, cardsErr
	}
	if remoteErr != nil {
		return nil, remoteErr
	}

	cardToLocal := make(map[domain.CardID]domain.UserID, len(cards))
	for _, m := range cards {
		cardToLocal[m.Card] = m.User
	}

	profiles := make(map[domain.UserID]*domain.Profile, len(local))
	order := make([]domain.UserID, 0, len(local))
	for _, up := range local {
		profiles[up.User] = up.Profile
		order = append(order, up.User)
	}

	for _, rec := range remote {
		recCards := rec.Cards()
		if len(recCards) == 0 {
			// Anonymous record, nothing to attach an identity to.
			continue
		}
		sort.Slice(recCards, func(i, j int) bool { return recCards[i] < recCards[j] })

		if anyCardLocal(recCards, cardToLocal) {
			// The local store already knows this player, even if
			// only partially. Local data wins.
			continue
		}
		if rec.Match() != peerclient.MatchExact {
			// Never manufacture a speculative identity out of an
			// ambiguous peer answer.
			continue
		}

		user := domain.VirtualUser(recCards[0])
		refID, err := s.store.GetRefID(ctx, game, version, user)
		if err != nil {
			return nil, err
		}
		extID, err := s.store.GetExtID(ctx, game, version, user)
		if err != nil {
			return nil, err
		}

		cp := rec.Clone()
		cp.Strip()
		if _, seen := profiles[user]; !seen {
			order = append(order, user)
		}
		profiles[user] = normalizeRecord(cp, game, version, refID, extID)
	}

	out := make([]domain.UserProfile, 0, len(order))
	for _, user := range order {
		out = append(out, domain.UserProfile{User: user, Profile: profiles[user]})
	}
	return out, nil
}

func versionFor(version int, exact bool) int {
	if exact {
		return version
	}
	return domain.VersionUnknown
}

func containsCard(cards []domain.CardID, card domain.CardID) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

func anyCardLocal(cards []domain.CardID, local map[domain.CardID]domain.UserID) bool {
	for _, c := range cards {
		if _, ok := local[c]; ok {
			return true
		}
	}
	return false
}
