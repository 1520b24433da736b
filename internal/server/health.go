package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasflow/engine"
	"github.com/atlasflow/engine/pkg/api"
	"github.com/atlasflow/engine/pkg/log"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"

	storeReachable   = "reachable"
	storeUnreachable = "unreachable"
)

func (s *Server) handleHealth(c *gin.Context) {
	res := api.HealthResponse{
		Service: atlasflow.Name + "-engine",
		Version: atlasflow.Version,
		Status:  statusHealthy,
		Store:   storeReachable,
	}

	if err := s.redis.Ping(c.Request.Context()).Err(); err != nil {
		s.logger.Warn("Run store unreachable",
			log.Error(err))
		res.Status = statusDegraded
		res.Store = storeUnreachable
	}

	c.JSON(http.StatusOK, res)
}
