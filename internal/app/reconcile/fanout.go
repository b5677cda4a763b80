package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
)

// fetchRemote queries every configured peer concurrently and flattens the
// responses in peer-configuration order, preserving each peer's own record
// order. Failure handling follows the service policy; under PolicyDegrade
// a failed peer contributes nothing, unless it was the only peer queried,
// in which case there is nothing to degrade to and the error propagates.
func (s *Service) fetchRemote(ctx context.Context, game domain.Game, version int, idType peerclient.IDType, cards []domain.CardID) ([]peerclient.Record, error) {
	if len(s.peers) == 0 {
		return nil, nil
	}

	type peerResult struct {
		records []peerclient.Record
		err     error
	}
	results := make([]peerResult, len(s.peers))

	var wg sync.WaitGroup
	for i, peer := range s.peers {
		wg.Add(1)
		go func(i int, peer peerclient.Client) {
			defer wg.Done()
			records, err := peer.GetProfiles(ctx, game, version, idType, cards)
			results[i] = peerResult{records: records, err: err}
		}(i, peer)
	}
	wg.Wait()

	var flat []peerclient.Record
	for i, res := range results {
		if res.err != nil {
			err := fmt.Errorf("peer %s: %w", s.peers[i].Name(), res.err)
			if s.peerPolicy == PolicyFail || len(s.peers) == 1 {
				return nil, err
			}
			s.logger.Printf("degrading failed peer fetch: %v", err)
			continue
		}
		flat = append(flat, res.records...)
	}
	return flat, nil
}
