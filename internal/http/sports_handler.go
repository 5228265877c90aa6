package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"footballapp/internal/sportsdata"
)

// SportsSource es la fuente de datos deportivos que expone el onboarding.
type SportsSource interface {
	Leagues(ctx context.Context) (sportsdata.LeaguesResult, error)
	TeamsByLeague(ctx context.Context, leagueID string) (sportsdata.TeamsResult, error)
	PlayersByTeam(ctx context.Context, teamID string) (sportsdata.PlayersResult, error)
}

// SportsHandler expone /api/onboarding.
type SportsHandler struct {
	logger       *zap.Logger
	source       SportsSource
	exposeErrors bool
}

func NewSportsHandler(logger *zap.Logger, source SportsSource, exposeErrors bool) *SportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SportsHandler{logger: logger, source: source, exposeErrors: exposeErrors}
}

// Leagues maneja GET /api/onboarding/leagues.
func (h *SportsHandler) Leagues(c *gin.Context) {
	res, err := h.source.Leagues(c.Request.Context())
	if err != nil {
		h.writeSourceError(c, "An error occurred while fetching leagues.", err)
		return
	}
	writeSuccess(c, http.StatusOK, "All leagues around the world.", res)
}

// Teams maneja GET /api/onboarding/leagues/:leagueId/teams.
func (h *SportsHandler) Teams(c *gin.Context) {
	res, err := h.source.TeamsByLeague(c.Request.Context(), c.Param("leagueId"))
	if err != nil {
		h.writeSourceError(c, "An error occurred while fetching teams.", err)
		return
	}
	writeSuccess(c, http.StatusOK, "All the teams for a given league.", res)
}

// Players maneja GET /api/onboarding/teams/:teamId/players.
func (h *SportsHandler) Players(c *gin.Context) {
	res, err := h.source.PlayersByTeam(c.Request.Context(), c.Param("teamId"))
	if err != nil {
		h.writeSourceError(c, "An error occurred while fetching players.", err)
		return
	}
	writeSuccess(c, http.StatusOK, "All players in the team.", res)
}

func (h *SportsHandler) writeSourceError(c *gin.Context, publicMsg string, err error) {
	switch {
	case errors.Is(err, sportsdata.ErrInvalidID):
		writeError(c, http.StatusBadRequest, "Invalid id")
	case errors.Is(err, sportsdata.ErrUpstream):
		h.logger.Warn("sports upstream failed", zap.Error(err))
		writeError(c, http.StatusBadGateway, publicMsg)
	default:
		writeInternal(c, h.logger, h.exposeErrors, "sports request failed", publicMsg, err)
	}
}
