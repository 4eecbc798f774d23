package api

import (
	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/cfg"
	"github.com/aquagov/governance-backend/types"
)

type pingStat struct {
	Version string `json:"version"`
}

func (s *Server) Ping(c echo.Context) error {
	stats := &pingStat{Version: cfg.ServerVersion}
	return OK.SetData(stats).Build(c)
}

// ServerStatus returns the stored status, or one built from live storage and cache checks.
func (s *Server) ServerStatus(c echo.Context) error {
	ctx := c.Request().Context()
	if s.cacheClient != nil {
		if status, err := s.cacheClient.ServerStatus(ctx); err == nil {
			return OK.SetData(status).Build(c)
		}
	}
	status := &types.ServerStatus{
		Status:        "ONLINE",
		AppVersion:    cfg.ServerVersion,
		ServerVersion: cfg.ServerVersion,
		Storage:       "ONLINE",
		Cache:         "DISABLED",
	}
	if err := s.dbClient.Ping(ctx); err != nil {
		s.logger.Warn("Storage ping failed", zap.Error(err))
		status.Storage = "OFFLINE"
	}
	if s.cacheClient != nil {
		status.Cache = "ONLINE"
		if err := s.cacheClient.Ping(ctx); err != nil {
			s.logger.Warn("Cache ping failed", zap.Error(err))
			status.Cache = "OFFLINE"
		}
	}
	return OK.SetData(status).Build(c)
}

func (s *Server) UpdateServerStatus(c echo.Context) error {
	lgr := s.logger.With(zap.String("method", "UpdateServerStatus"))
	if !s.authorized(c.Request().Header.Get("Authorization")) {
		lgr.Warn("Cannot authorization request")
		return Unauthorized.Build(c)
	}
	if s.cacheClient == nil {
		return Unavailable.SetData("cache disabled").Build(c)
	}
	var serverStatus types.ServerStatus
	if err := c.Bind(&serverStatus); err != nil {
		lgr.Error("cannot bind server status", zap.Error(err))
		return Invalid.Build(c)
	}
	if err := s.cacheClient.UpdateServerStatus(c.Request().Context(), &serverStatus); err != nil {
		lgr.Error("cannot update server status", zap.Error(err))
		return InternalServer.Build(c)
	}
	return OK.SetData(nil).Build(c)
}
