package sportsdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrInvalidID = errors.New("invalid id")
	ErrUpstream  = errors.New("sports api error")
)

// Config agrupa los parámetros del proveedor de datos deportivos.
type Config struct {
	BaseURLV3 string
	BaseURLV2 string
	APIKey    string
	APIHost   string
	Season    int
	CacheTTL  time.Duration
}

// Client consulta la API de fútbol y cachea las respuestas mapeadas.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  Cache
	logger *zap.Logger
}

func NewClient(cfg Config, cache Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = noopCache{}
	}
	cfg.BaseURLV3 = strings.TrimRight(cfg.BaseURLV3, "/")
	cfg.BaseURLV2 = strings.TrimRight(cfg.BaseURLV2, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		cache:  cache,
		logger: logger,
	}
}

func (c *Client) Leagues(ctx context.Context) (LeaguesResult, error) {
	return cached(ctx, c, "leagues", func() (LeaguesResult, error) {
		var env v3Envelope[v3League]
		if err := c.getJSON(ctx, c.cfg.BaseURLV3+"/leagues", &env); err != nil {
			return LeaguesResult{}, err
		}
		leagues := make([]LeagueItem, 0, len(env.Response))
		for _, item := range env.Response {
			leagues = append(leagues, LeagueItem{League: item.League})
		}
		return LeaguesResult{
			Get:        env.Get,
			Parameters: env.Parameters,
			Errors:     env.Errors,
			Results:    env.Results,
			Paging:     env.Paging,
			Leagues:    leagues,
		}, nil
	})
}

func (c *Client) TeamsByLeague(ctx context.Context, leagueID string) (TeamsResult, error) {
	id, err := parseID(leagueID)
	if err != nil {
		return TeamsResult{}, err
	}
	return cached(ctx, c, "teams:"+id, func() (TeamsResult, error) {
		var env v2TeamsEnvelope
		if err := c.getJSON(ctx, c.cfg.BaseURLV2+"/teams/league/"+id, &env); err != nil {
			return TeamsResult{}, err
		}
		teams := env.API.Teams
		if teams == nil {
			teams = []Team{}
		}
		return TeamsResult{Results: env.API.Results, Teams: teams}, nil
	})
}

func (c *Client) PlayersByTeam(ctx context.Context, teamID string) (PlayersResult, error) {
	id, err := parseID(teamID)
	if err != nil {
		return PlayersResult{}, err
	}
	season := strconv.Itoa(c.cfg.Season)
	return cached(ctx, c, "players:"+id+":"+season, func() (PlayersResult, error) {
		q := url.Values{}
		q.Set("team", id)
		q.Set("season", season)

		var env v3Envelope[v3Player]
		if err := c.getJSON(ctx, c.cfg.BaseURLV3+"/players?"+q.Encode(), &env); err != nil {
			return PlayersResult{}, err
		}
		players := make([]Player, 0, len(env.Response))
		for _, item := range env.Response {
			players = append(players, item.Player)
		}
		return PlayersResult{
			Get:        env.Get,
			Parameters: env.Parameters,
			Errors:     env.Errors,
			Results:    env.Results,
			Paging:     env.Paging,
			Players:    players,
		}, nil
	})
}

func cached[T any](ctx context.Context, c *Client, key string, load func() (T, error)) (T, error) {
	if raw, ok := c.cache.Get(ctx, key); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		c.logger.Warn("sports cache entry unreadable", zap.String("key", key))
	}

	out, err := load()
	if err != nil {
		return out, err
	}
	if raw, err := json.Marshal(out); err == nil {
		c.cache.Set(ctx, key, raw, c.cfg.CacheTTL)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	}
	if c.cfg.APIHost != "" {
		req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 400 {
		c.logger.Warn("sports api error status",
			zap.Int("status", resp.StatusCode),
			zap.String("endpoint", req.URL.Path),
		)
		return fmt.Errorf("%w: status=%d", ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: unmarshal response: %v", ErrUpstream, err)
	}
	return nil
}

func parseID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return "", ErrInvalidID
	}
	return strconv.Itoa(n), nil
}
