package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Peer is one configured sibling server.
type Peer struct {
	Name    string
	BaseURL string
	// Token is sent as `Authorization: Token <t>`; empty means the peer
	// accepts unauthenticated queries.
	Token string
}

// Server is the deployment-provided configuration for the API process.
type Server struct {
	Port string

	// StorageBackend is "memory" or "postgres".
	StorageBackend string
	DatabaseURL    string

	// APIToken, when set, is required from callers (including sibling
	// servers) on every endpoint except the health check.
	APIToken string

	Peers           []Peer
	PeerTimeout     time.Duration
	PeerFailureMode string
}

// LoadServerFromEnv reads the server configuration from the environment.
//
// PEER_SERVERS is a comma-separated list of `name=url` or `name=url|token`
// entries, queried in the order listed.
func LoadServerFromEnv() (Server, error) {
	cfg := Server{
		Port:            getenv("PORT", "8080"),
		StorageBackend:  getenv("STORAGE_BACKEND", "memory"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		APIToken:        os.Getenv("API_TOKEN"),
		PeerTimeout:     30 * time.Second,
		PeerFailureMode: getenv("PEER_FAILURE_MODE", "degrade"),
	}

	switch cfg.StorageBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return Server{}, fmt.Errorf("STORAGE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return Server{}, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	switch cfg.PeerFailureMode {
	case "degrade", "fail":
	default:
		return Server{}, fmt.Errorf("PEER_FAILURE_MODE must be degrade or fail, got %q", cfg.PeerFailureMode)
	}

	if raw := os.Getenv("PEER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Server{}, fmt.Errorf("invalid PEER_TIMEOUT %q", raw)
		}
		cfg.PeerTimeout = d
	}

	peers, err := ParsePeers(os.Getenv("PEER_SERVERS"))
	if err != nil {
		return Server{}, err
	}
	cfg.Peers = peers

	return cfg, nil
}

// ParsePeers parses the PEER_SERVERS format. The listed order is the fan-out
// order, so it is preserved.
func ParsePeers(raw string) ([]Peer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var peers []Peer
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid PEER_SERVERS entry %q: want name=url or name=url|token", entry)
		}
		name = strings.TrimSpace(name)
		if seen[name] {
			return nil, fmt.Errorf("duplicate peer name %q", name)
		}
		seen[name] = true

		url, token, _ := strings.Cut(rest, "|")
		url = strings.TrimSpace(url)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("peer %q: url %q must be http(s)", name, url)
		}
		peers = append(peers, Peer{
			Name:    name,
			BaseURL: strings.TrimRight(url, "/"),
			Token:   strings.TrimSpace(token),
		})
	}
	return peers, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
