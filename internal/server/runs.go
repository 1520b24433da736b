package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atlasflow/engine/internal/config"
	"github.com/atlasflow/engine/internal/engine"
	"github.com/atlasflow/engine/pkg/api"
)

var (
	ErrInvalidJSON = errors.New("invalid JSON payload")
	ErrListRuns    = errors.New("failed to list runs")
	ErrGetRun      = errors.New("failed to get run")
)

func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.engine.ListRuns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrListRuns, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.RunsListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

func (s *Server) startRun(c *gin.Context) {
	var req api.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	id, err := s.engine.StartRun(&engine.StartRequest{
		Options:     req.Options(),
		ProfilePath: req.Profile,
		Overrides:   config.Settings(req.Overrides),
	})
	if err == nil {
		c.JSON(http.StatusCreated, api.RunStartedResponse{
			RunID: id,
		})
		return
	}

	status := http.StatusBadRequest
	if !engine.IsStructural(err) && !engine.IsConfiguration(err) {
		status = http.StatusInternalServerError
	}
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

func (s *Server) getRun(c *gin.Context) {
	runID := api.RunID(c.Param("runID"))

	st, err := s.engine.GetRunState(c.Request.Context(), runID)
	if err == nil {
		c.JSON(http.StatusOK, st)
		return
	}
	s.runError(c, runID, err)
}

func (s *Server) getRunResult(c *gin.Context) {
	runID := api.RunID(c.Param("runID"))

	res, err := s.engine.GetRunResult(c.Request.Context(), runID)
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}
	s.runError(c, runID, err)
}

func (s *Server) abortRun(c *gin.Context) {
	runID := api.RunID(c.Param("runID"))

	err := s.engine.AbortRun(c.Request.Context(), runID)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
	case errors.Is(err, engine.ErrRunNotActive):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), runID),
			Status: http.StatusConflict,
		})
	default:
		s.runError(c, runID, err)
	}
}

func (s *Server) listSteps(c *gin.Context) {
	steps := s.engine.Steps()
	c.JSON(http.StatusOK, api.StepsListResponse{
		Steps: steps,
		Count: len(steps),
	})
}

func (s *Server) handlePlanPreview(c *gin.Context) {
	order, err := engine.Plan(s.engine.Steps())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, api.PlanResponse{Order: order})
}

func (s *Server) runError(c *gin.Context, id api.RunID, err error) {
	if errors.Is(err, engine.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), id),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrGetRun, err),
		Status: http.StatusInternalServerError,
	})
}
