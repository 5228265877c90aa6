package sportsdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.ttls[key] = ttl
}

type upstream struct {
	mu    sync.Mutex
	calls map[string]int
	srv   *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{calls: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/leagues", func(w http.ResponseWriter, r *http.Request) {
		u.hit(r)
		if r.Header.Get("x-rapidapi-key") != "test-key" || r.Header.Get("x-rapidapi-host") != "api.test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"get":"leagues","parameters":[],"errors":[],"results":1,"paging":{"current":1,"total":1},
			"response":[{"league":{"id":39,"name":"Premier League"},"country":{"name":"England"},"seasons":[]}]}`))
	})
	mux.HandleFunc("/v2/teams/league/39", func(w http.ResponseWriter, r *http.Request) {
		u.hit(r)
		_, _ = w.Write([]byte(`{"api":{"results":1,"teams":[{"team_id":33,"name":"Manchester United","code":"MUN","logo":"https://x/33.png","country":"England","venue_name":"Old Trafford"}]}}`))
	})
	mux.HandleFunc("/v3/players", func(w http.ResponseWriter, r *http.Request) {
		u.hit(r)
		if r.URL.Query().Get("team") != "33" || r.URL.Query().Get("season") != "2023" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"get":"players","parameters":{"team":"33","season":"2023"},"errors":[],"results":1,"paging":{"current":1,"total":3},
			"response":[{"player":{"id":882,"name":"D. de Gea","firstname":"David","lastname":"De Gea Quintana","age":32,"nationality":"Spain","photo":"https://x/882.png"},"statistics":[]}]}`))
	})
	mux.HandleFunc("/v2/teams/league/500", func(w http.ResponseWriter, r *http.Request) {
		u.hit(r)
		w.WriteHeader(http.StatusInternalServerError)
	})
	u.srv = httptest.NewServer(mux)
	return u
}

func (u *upstream) hit(r *http.Request) {
	u.mu.Lock()
	u.calls[r.URL.Path]++
	u.mu.Unlock()
}

func (u *upstream) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls[path]
}

func newTestClient(u *upstream, cache Cache) *Client {
	return NewClient(Config{
		BaseURLV3: u.srv.URL + "/v3/",
		BaseURLV2: u.srv.URL + "/v2",
		APIKey:    "test-key",
		APIHost:   "api.test",
		Season:    2023,
		CacheTTL:  5 * time.Minute,
	}, cache, zap.NewNop())
}

func TestClient_LeaguesMapsAndCaches(t *testing.T) {
	u := newUpstream(t)
	defer u.srv.Close()
	cache := newMemCache()
	c := newTestClient(u, cache)

	res, err := c.Leagues(context.Background())
	if err != nil {
		t.Fatalf("leagues: %v", err)
	}
	if res.Get != "leagues" || res.Results != 1 || len(res.Leagues) != 1 {
		t.Fatalf("unexpected leagues result: %+v", res)
	}
	if string(res.Leagues[0].League) != `{"id":39,"name":"Premier League"}` {
		t.Fatalf("unexpected league payload: %s", res.Leagues[0].League)
	}

	if _, err := c.Leagues(context.Background()); err != nil {
		t.Fatalf("cached leagues: %v", err)
	}
	if n := u.count("/v3/leagues"); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
	if cache.ttls["leagues"] != 5*time.Minute {
		t.Fatalf("expected cache ttl, got %v", cache.ttls["leagues"])
	}
}

func TestClient_TeamsByLeague(t *testing.T) {
	u := newUpstream(t)
	defer u.srv.Close()
	c := newTestClient(u, nil)

	res, err := c.TeamsByLeague(context.Background(), "39")
	if err != nil {
		t.Fatalf("teams: %v", err)
	}
	if res.Results != 1 || len(res.Teams) != 1 {
		t.Fatalf("unexpected teams: %+v", res)
	}
	team := res.Teams[0]
	if team.TeamID != 33 || team.Code != "MUN" || team.Country != "England" {
		t.Fatalf("unexpected team: %+v", team)
	}

	if _, err := c.TeamsByLeague(context.Background(), "abc"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := c.TeamsByLeague(context.Background(), "500"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestClient_PlayersByTeam(t *testing.T) {
	u := newUpstream(t)
	defer u.srv.Close()
	c := newTestClient(u, newMemCache())

	res, err := c.PlayersByTeam(context.Background(), "33")
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(res.Players) != 1 || res.Players[0].Name != "D. de Gea" || res.Players[0].Age != 32 {
		t.Fatalf("unexpected players: %+v", res)
	}
}

type mockRedisGetSetter struct {
	getErr error
	setErr error
	value  string
	setKey string
}

func (m *mockRedisGetSetter) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	cmd.SetVal(m.value)
	return cmd
}

func (m *mockRedisGetSetter) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.setKey = key
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func TestRedisCache_FailsSafe(t *testing.T) {
	miss := &RedisCache{client: &mockRedisGetSetter{getErr: redis.Nil}, prefix: "sports:", logger: zap.NewNop()}
	if _, ok := miss.Get(context.Background(), "leagues"); ok {
		t.Fatalf("expected miss on redis.Nil")
	}

	down := &RedisCache{client: &mockRedisGetSetter{getErr: errors.New("conn refused"), setErr: errors.New("conn refused")}, prefix: "sports:", logger: zap.NewNop()}
	if _, ok := down.Get(context.Background(), "leagues"); ok {
		t.Fatalf("expected miss when redis is down")
	}
	down.Set(context.Background(), "leagues", []byte("{}"), time.Minute)

	mock := &mockRedisGetSetter{value: `{"results":1}`}
	hit := &RedisCache{client: mock, prefix: "sports:", logger: zap.NewNop()}
	raw, ok := hit.Get(context.Background(), "leagues")
	if !ok || string(raw) != `{"results":1}` {
		t.Fatalf("expected hit, got %q %v", raw, ok)
	}
	hit.Set(context.Background(), "teams:39", []byte("{}"), time.Minute)
	if mock.setKey != "sports:teams:39" {
		t.Fatalf("expected prefixed key, got %q", mock.setKey)
	}
}
