package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arcadium-net/profile-federation-api/internal/adapters/httpapi"
	memclock "github.com/arcadium-net/profile-federation-api/internal/adapters/memory/clock"
	fakepeer "github.com/arcadium-net/profile-federation-api/internal/adapters/memory/peerclient"
	memstore "github.com/arcadium-net/profile-federation-api/internal/adapters/memory/userstore"
	"github.com/arcadium-net/profile-federation-api/internal/app/reconcile"
	"github.com/arcadium-net/profile-federation-api/internal/domain"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
)

type fixture struct {
	store *memstore.Store
	peer  *fakepeer.Client
	srv   *httptest.Server
}

func newFixture(t *testing.T, apiToken string) *fixture {
	t.Helper()

	store := memstore.NewStore(memclock.NewFixed(time.Unix(1700000000, 0).UTC()))
	peer := fakepeer.New("east")
	recon := reconcile.New(store, []peerclient.Client{peer},
		reconcile.WithLogger(log.New(io.Discard, "", 0)))

	srv := httptest.NewServer(httpapi.NewRouter(httpapi.NewServer(recon, store), apiToken))
	t.Cleanup(srv.Close)
	return &fixture{store: store, peer: peer, srv: srv}
}

func (f *fixture) seedUser(t *testing.T, card domain.CardID, name string) domain.UserID {
	t.Helper()
	ctx := context.Background()
	user, err := f.store.AddUser(ctx)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := f.store.PutCard(ctx, card, user); err != nil {
		t.Fatalf("PutCard: %v", err)
	}
	if err := f.store.PutProfile(ctx, domain.GameDance, 17, user, name, map[string]any{"area": 4}); err != nil {
		t.Fatalf("PutProfile: %v", err)
	}
	return user
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthzBypassesAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "secret")
	if code := getJSON(t, f.srv.URL+"/healthz", nil); code != http.StatusOK {
		t.Fatalf("healthz: got %d", code)
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "secret")

	if code := getJSON(t, f.srv.URL+"/v1/users/by-card/E004AABB", nil); code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d, want 401", code)
	}

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/users/by-card/E004AABB", nil)
	req.Header.Set("Authorization", "Token secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token: got %d, want 200", resp.StatusCode)
	}
}

func TestUserByCard(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	local := f.seedUser(t, "E004000000000001", "LOCAL")

	var got struct {
		UserID  string `json:"user_id"`
		Virtual bool   `json:"virtual"`
	}
	if code := getJSON(t, f.srv.URL+"/v1/users/by-card/e004000000000001", &got); code != http.StatusOK {
		t.Fatalf("known card: got %d", code)
	}
	if got.UserID != string(local) || got.Virtual {
		t.Fatalf("unexpected response: %+v", got)
	}

	if code := getJSON(t, f.srv.URL+"/v1/users/by-card/E004FFFF00000001", &got); code != http.StatusOK {
		t.Fatalf("unknown card: got %d", code)
	}
	if !got.Virtual || got.UserID != string(domain.VirtualUser("E004FFFF00000001")) {
		t.Fatalf("unknown card must resolve virtually: %+v", got)
	}
}

func TestProfileEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	local := f.seedUser(t, "E004000000000002", "DANCER")

	var profile map[string]any
	url := f.srv.URL + "/v1/games/dance/versions/17/profiles/" + string(local)
	if code := getJSON(t, url, &profile); code != http.StatusOK {
		t.Fatalf("profile: got %d", code)
	}
	if profile["name"] != "DANCER" || profile["area"] != float64(4) || profile["version"] != float64(17) {
		t.Fatalf("unexpected profile body: %v", profile)
	}

	var errBody struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	missing := f.srv.URL + "/v1/games/dance/versions/99/profiles/" + string(local)
	if code := getJSON(t, missing, &errBody); code != http.StatusNotFound {
		t.Fatalf("missing profile: got %d", code)
	}
	if errBody.Error.Code != "PROFILE_NOT_FOUND" {
		t.Fatalf("unexpected error code %q", errBody.Error.Code)
	}

	if code := getJSON(t, url+"?match=sideways", nil); code != http.StatusBadRequest {
		t.Fatalf("bad match param: got %d", code)
	}
	if code := getJSON(t, f.srv.URL+"/v1/games/dance/versions/seventeen/profiles/x", nil); code != http.StatusBadRequest {
		t.Fatalf("bad version: got %d", code)
	}
}

func TestProfileEndpoint_VirtualAnyMatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	card := domain.CardID("E004FFFF00000002")
	f.peer.SetRecords(peerclient.Record{
		"name":  "REMOTE",
		"cards": []any{string(card)},
		"match": "partial",
	})

	user := domain.VirtualUser(card)
	var profile map[string]any
	url := f.srv.URL + "/v1/games/dance/versions/17/profiles/" + string(user) + "?match=any"
	if code := getJSON(t, url, &profile); code != http.StatusOK {
		t.Fatalf("virtual any-match: got %d", code)
	}
	if profile["name"] != "REMOTE" || profile["version"] != float64(0) {
		t.Fatalf("partial match must come back with version 0: %v", profile)
	}

	// Strict lookup rejects the same record.
	strict := f.srv.URL + "/v1/games/dance/versions/17/profiles/" + string(user)
	if code := getJSON(t, strict, nil); code != http.StatusNotFound {
		t.Fatalf("strict lookup of partial record: got %d, want 404", code)
	}
}

func TestBatchProfiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	local := f.seedUser(t, "E004000000000003", "LOCAL")
	ghost := domain.VirtualUser("E004FFFF00000003")

	var got struct {
		Results []struct {
			UserID  string         `json:"user_id"`
			Profile map[string]any `json:"profile"`
		} `json:"results"`
	}
	code := postJSON(t, f.srv.URL+"/v1/games/dance/versions/17/profiles/batch",
		map[string]any{"user_ids": []string{string(local), string(ghost)}}, &got)
	if code != http.StatusOK {
		t.Fatalf("batch: got %d", code)
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", got.Results)
	}
	if got.Results[0].UserID != string(local) || got.Results[0].Profile == nil {
		t.Fatalf("unexpected local entry: %+v", got.Results[0])
	}
	if got.Results[1].UserID != string(ghost) || got.Results[1].Profile != nil {
		t.Fatalf("unanswered virtual user must appear with null profile: %+v", got.Results[1])
	}
}

func TestAllProfiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	f.seedUser(t, "E004000000000004", "LOCAL")
	f.peer.SetRecords(peerclient.Record{
		"name":  "REMOTE",
		"cards": []any{"E004FFFF00000004"},
		"match": "exact",
	})

	var got struct {
		Results []struct {
			UserID  string         `json:"user_id"`
			Profile map[string]any `json:"profile"`
		} `json:"results"`
	}
	if code := getJSON(t, f.srv.URL+"/v1/games/dance/versions/17/profiles", &got); code != http.StatusOK {
		t.Fatalf("all profiles: got %d", code)
	}
	if len(got.Results) != 2 {
		t.Fatalf("expected local + remote, got %+v", got.Results)
	}
	if got.Results[0].Profile["name"] != "LOCAL" || got.Results[1].Profile["name"] != "REMOTE" {
		t.Fatalf("unexpected ordering: %+v", got.Results)
	}
}

func TestFederationEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	f.seedUser(t, "E004000000000005", "SERVED")

	var got struct {
		Profiles []map[string]any `json:"profiles"`
	}

	// Exact hit by card, case-insensitive.
	code := postJSON(t, f.srv.URL+"/v1/federation/profiles", map[string]any{
		"game": "dance", "version": 17, "id_type": "card",
		"cards": []string{"e004000000000005", "E004DOESNOTEXIST"},
	}, &got)
	if code != http.StatusOK {
		t.Fatalf("federation card query: got %d", code)
	}
	if len(got.Profiles) != 1 {
		t.Fatalf("expected one served record, got %+v", got.Profiles)
	}
	rec := got.Profiles[0]
	if rec["match"] != "exact" || rec["name"] != "SERVED" {
		t.Fatalf("unexpected record: %v", rec)
	}
	cards, ok := rec["cards"].([]any)
	if !ok || len(cards) != 1 || cards[0] != "E004000000000005" {
		t.Fatalf("served record must carry the user's cards: %v", rec)
	}
	if _, ok := rec["refid"]; ok {
		t.Fatalf("server-local identifiers must be stripped: %v", rec)
	}

	// Unknown version degrades to a partial match.
	code = postJSON(t, f.srv.URL+"/v1/federation/profiles", map[string]any{
		"game": "dance", "version": 99, "id_type": "card",
		"cards": []string{"E004000000000005"},
	}, &got)
	if code != http.StatusOK {
		t.Fatalf("federation partial query: got %d", code)
	}
	if len(got.Profiles) != 1 || got.Profiles[0]["match"] != "partial" {
		t.Fatalf("expected partial match, got %+v", got.Profiles)
	}

	// Full enumeration.
	code = postJSON(t, f.srv.URL+"/v1/federation/profiles", map[string]any{
		"game": "dance", "version": 17, "id_type": "server",
	}, &got)
	if code != http.StatusOK {
		t.Fatalf("federation server query: got %d", code)
	}
	if len(got.Profiles) != 1 || got.Profiles[0]["match"] != "exact" {
		t.Fatalf("unexpected enumeration: %+v", got.Profiles)
	}

	// Bad id_type.
	if code := postJSON(t, f.srv.URL+"/v1/federation/profiles", map[string]any{
		"game": "dance", "version": 17, "id_type": "telepathy",
	}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id_type: got %d", code)
	}
}

func TestUserByRefID_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	if code := getJSON(t, f.srv.URL+"/v1/games/dance/versions/17/users/by-refid/DEADBEEF00000000", nil); code != http.StatusNotFound {
		t.Fatalf("unknown refid: got %d, want 404", code)
	}
}
