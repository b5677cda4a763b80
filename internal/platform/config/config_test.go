package config_test

import (
	"strings"
	"testing"

	"github.com/arcadium-net/profile-federation-api/internal/platform/config"
)

func TestParsePeers_OrderAndTokens(t *testing.T) {
	t.Parallel()

	peers, err := config.ParsePeers("east=https://east.example/|tok-1, west=http://west.example:8080")
	if err != nil {
		t.Fatalf("ParsePeers: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %+v", peers)
	}
	if peers[0].Name != "east" || peers[0].BaseURL != "https://east.example" || peers[0].Token != "tok-1" {
		t.Fatalf("unexpected first peer: %+v", peers[0])
	}
	if peers[1].Name != "west" || peers[1].BaseURL != "http://west.example:8080" || peers[1].Token != "" {
		t.Fatalf("unexpected second peer: %+v", peers[1])
	}
}

func TestParsePeers_Empty(t *testing.T) {
	t.Parallel()

	peers, err := config.ParsePeers("  ")
	if err != nil || peers != nil {
		t.Fatalf("empty config: got (%v, %v)", peers, err)
	}
}

func TestParsePeers_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		wantErr string
	}{
		{"https://east.example", "want name=url"},
		{"east=ftp://east.example", "must be http(s)"},
		{"east=https://a.example,east=https://b.example", "duplicate peer name"},
	}
	for _, tc := range cases {
		if _, err := config.ParsePeers(tc.raw); err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("ParsePeers(%q): got %v, want error containing %q", tc.raw, err, tc.wantErr)
		}
	}
}

func TestLoadServerFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_BACKEND", "PEER_FAILURE_MODE", "PEER_TIMEOUT", "PEER_SERVERS"} {
		t.Setenv(key, "")
	}
	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		t.Fatalf("LoadServerFromEnv: %v", err)
	}
	if cfg.Port != "8080" || cfg.StorageBackend != "memory" || cfg.PeerFailureMode != "degrade" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadServerFromEnv_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := config.LoadServerFromEnv(); err == nil {
		t.Fatalf("postgres backend without DATABASE_URL must fail")
	}
}

func TestLoadServerFromEnv_InvalidFailureMode(t *testing.T) {
	t.Setenv("PEER_FAILURE_MODE", "explode")
	if _, err := config.LoadServerFromEnv(); err == nil {
		t.Fatalf("unknown PEER_FAILURE_MODE must fail")
	}
}

func TestLoadServerFromEnv_PeerTimeout(t *testing.T) {
	t.Setenv("PEER_TIMEOUT", "5s")
	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		t.Fatalf("LoadServerFromEnv: %v", err)
	}
	if cfg.PeerTimeout.Seconds() != 5 {
		t.Fatalf("unexpected timeout: %v", cfg.PeerTimeout)
	}

	t.Setenv("PEER_TIMEOUT", "soon")
	if _, err := config.LoadServerFromEnv(); err == nil {
		t.Fatalf("unparseable PEER_TIMEOUT must fail")
	}
}
