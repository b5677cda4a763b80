package peerclient

import (
	"context"
	"sync"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
)

// Query captures one GetProfiles call for test assertions.
type Query struct {
	Game    domain.Game
	Version int
	IDType  peerclient.IDType
	Cards   []domain.CardID
}

// Client is a scripted in-memory peer. It returns whatever records it was
// configured with, regardless of the query filter, and records every call.
type Client struct {
	name string

	mu      sync.Mutex
	records []peerclient.Record
	err     error
	queries []Query
}

func New(name string) *Client {
	return &Client{name: name}
}

func (c *Client) Name() string { return c.name }

// SetRecords scripts the records every subsequent query returns.
func (c *Client) SetRecords(records ...peerclient.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = records
}

// SetError scripts a failure for every subsequent query.
func (c *Client) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls reports how many queries this peer has served.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

// Queries returns a copy of every captured query, oldest first.
func (c *Client) Queries() []Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Query(nil), c.queries...)
}

func (c *Client) GetProfiles(ctx context.Context, game domain.Game, version int, idType peerclient.IDType, cards []domain.CardID) ([]peerclient.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, Query{
		Game:    game,
		Version: version,
		IDType:  idType,
		Cards:   append([]domain.CardID(nil), cards...),
	})
	if c.err != nil {
		return nil, c.err
	}
	return append([]peerclient.Record(nil), c.records...), nil
}
