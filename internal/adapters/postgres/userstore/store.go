package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	clockport "github.com/arcadium-net/profile-federation-api/internal/ports/out/clock"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

// Store is a Postgres implementation of userstore.Store.
type Store struct {
	pool *pgxpool.Pool
	clk  clockport.Clock
}

func NewStore(pool *pgxpool.Pool, clk clockport.Clock) *Store {
	return &Store{pool: pool, clk: clk}
}

// AddUser mints a new local user row. UUID-shaped IDs keep local users
// disjoint from the virtual ID space.
func (s *Store) AddUser(ctx context.Context) (domain.UserID, error) {
	user := domain.UserID(uuid.NewString())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, created_at) VALUES ($1, $2)`,
		string(user), s.clk.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) PutCard(ctx context.Context, card domain.CardID, user domain.UserID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cards (card, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (card) DO UPDATE SET user_id = EXCLUDED.user_id
	`, string(domain.NormalizeCard(card)), string(user), s.clk.Now())
	if err != nil {
		return fmt.Errorf("upsert card: %w", err)
	}
	return nil
}

func (s *Store) PutProfile(ctx context.Context, game domain.Game, version int, user domain.UserID, name string, extra map[string]any) error {
	if extra == nil {
		extra = map[string]any{}
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("encode profile extra: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (game, version, user_id, name, extra, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game, version, user_id)
		DO UPDATE SET name = EXCLUDED.name, extra = EXCLUDED.extra, updated_at = EXCLUDED.updated_at
	`, string(game), version, string(user), name, raw, s.clk.Now())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// getRef fetches the minted ref/ext pair for (game, version, user),
// minting one in a single round trip on first use. The no-op update on
// conflict makes RETURNING yield the existing row, so concurrent minting
// races resolve to one winner.
func (s *Store) getRef(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.RefID, domain.ExtID, error) {
	var (
		refID string
		extID int64
	)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO refids (game, version, user_id, refid, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game, version, user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING refid, extid
	`, string(game), version, string(user), string(mintRefID()), s.clk.Now()).Scan(&refID, &extID)
	if err != nil {
		return "", 0, fmt.Errorf("mint refid: %w", err)
	}
	return domain.RefID(refID), domain.ExtID(extID), nil
}

func mintRefID() domain.RefID {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return domain.RefID(raw[:16])
}

func (s *Store) GetRefID(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.RefID, error) {
	refID, _, err := s.getRef(ctx, game, version, user)
	return refID, err
}

func (s *Store) GetExtID(ctx context.Context, game domain.Game, version int, user domain.UserID) (domain.ExtID, error) {
	_, extID, err := s.getRef(ctx, game, version, user)
	return extID, err
}

func (s *Store) GetProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error) {
	var (
		name string
		raw  []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT name, extra FROM profiles
		WHERE game = $1 AND version = $2 AND user_id = $3
	`, string(game), version, string(user)).Scan(&name, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}

	extra := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &extra); err != nil {
			return nil, fmt.Errorf("decode profile extra: %w", err)
		}
	}
	refID, extID, err := s.getRef(ctx, game, version, user)
	if err != nil {
		return nil, err
	}
	return &domain.Profile{
		Name:    name,
		Game:    game,
		Version: version,
		RefID:   refID,
		ExtID:   extID,
		Extra:   extra,
	}, nil
}

func (s *Store) GetAnyProfile(ctx context.Context, game domain.Game, version int, user domain.UserID) (*domain.Profile, error) {
	p, err := s.GetProfile(ctx, game, version, user)
	if err != nil || p != nil {
		return p, err
	}

	var best int
	err = s.pool.QueryRow(ctx, `
		SELECT version FROM profiles
		WHERE game = $1 AND user_id = $2
		ORDER BY version DESC
		LIMIT 1
	`, string(game), string(user)).Scan(&best)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select fallback version: %w", err)
	}
	return s.GetProfile(ctx, game, best, user)
}

func (s *Store) GetAnyProfiles(ctx context.Context, game domain.Game, version int, users []domain.UserID) ([]domain.UserProfile, error) {
	out := make([]domain.UserProfile, 0, len(users))
	for _, user := range users {
		p, err := s.GetAnyProfile(ctx, game, version, user)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.UserProfile{User: user, Profile: p})
	}
	return out, nil
}

func (s *Store) GetAllCards(ctx context.Context) ([]userstore.CardMapping, error) {
	rows, err := s.pool.Query(ctx, `SELECT card, user_id FROM cards ORDER BY card`)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	defer rows.Close()

	var out []userstore.CardMapping
	for rows.Next() {
		var card, user string
		if err := rows.Scan(&card, &user); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, userstore.CardMapping{
			Card: domain.CardID(card),
			User: domain.UserID(user),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return out, nil
}

func (s *Store) GetAllProfiles(ctx context.Context, game domain.Game, version int) ([]domain.UserProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM profiles
		WHERE game = $1 AND version = $2
		ORDER BY user_id
	`, string(game), version)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect profile users: %w", err)
	}

	out := make([]domain.UserProfile, 0, len(users))
	for _, user := range users {
		p, err := s.GetProfile(ctx, game, version, domain.UserID(user))
		if err != nil {
			return nil, err
		}
		out = append(out, domain.UserProfile{User: domain.UserID(user), Profile: p})
	}
	return out, nil
}

func (s *Store) FromCard(ctx context.Context, card domain.CardID) (domain.UserID, error) {
	var user string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM cards WHERE card = $1`,
		string(domain.NormalizeCard(card)),
	).Scan(&user)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", userstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select card: %w", err)
	}
	return domain.UserID(user), nil
}

func (s *Store) FromRefID(ctx context.Context, game domain.Game, version int, refID domain.RefID) (domain.UserID, error) {
	var user string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id FROM refids
		WHERE game = $1 AND version = $2 AND refid = $3
	`, string(game), version, string(refID)).Scan(&user)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", userstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select refid: %w", err)
	}
	return domain.UserID(user), nil
}

func (s *Store) FromExtID(ctx context.Context, game domain.Game, version int, extID domain.ExtID) (domain.UserID, error) {
	var user string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id FROM refids
		WHERE game = $1 AND version = $2 AND extid = $3
	`, string(game), version, int64(extID)).Scan(&user)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", userstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select extid: %w", err)
	}
	return domain.UserID(user), nil
}
