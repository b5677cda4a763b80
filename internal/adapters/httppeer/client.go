// Package httppeer talks to sibling servers over their JSON federation
// endpoint. One Client per configured peer; the reconciliation engine fans
// out across them.
package httppeer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/platform/config"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
)

type Client struct {
	name    string
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for one peer. The timeout bounds each query; the
// engine itself imposes none.
func New(peer config.Peer, timeout time.Duration) *Client {
	return &Client{
		name:    peer.Name,
		baseURL: peer.BaseURL,
		token:   peer.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return c.name }

type lookupRequest struct {
	Game    string   `json:"game"`
	Version int      `json:"version"`
	IDType  string   `json:"id_type"`
	Cards   []string `json:"cards,omitempty"`
}

type lookupResponse struct {
	Profiles []map[string]any `json:"profiles"`
}

func (c *Client) GetProfiles(ctx context.Context, game domain.Game, version int, idType peerclient.IDType, cards []domain.CardID) ([]peerclient.Record, error) {
	reqBody := lookupRequest{
		Game:    string(game),
		Version: version,
		IDType:  string(idType),
	}
	for _, card := range cards {
		reqBody.Cards = append(reqBody.Cards, string(card))
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/federation/profiles", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query peer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little for the error message, then bail.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("peer returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]peerclient.Record, 0, len(body.Profiles))
	for _, p := range body.Profiles {
		records = append(records, peerclient.Record(p))
	}
	return records, nil
}
