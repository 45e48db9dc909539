package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/db/kvdb"
	"github.com/meghashyamc/buzee/logger"
	syncsvc "github.com/meghashyamc/buzee/services/sync"
	"github.com/meghashyamc/buzee/validation"
)

const defaultRunsLimit = 10

type RunsRequest struct {
	Limit int `form:"limit" validate:"min=0,max=50"`
}

func SetupSync(router *gin.Engine, logger logger.Logger, controller *syncsvc.Controller, validator *validation.Validator) {
	router.POST("/sync", handleStartSync(controller, logger))
	router.GET("/sync", handleSyncStatus(controller, logger))
	router.GET("/sync/runs", handleListRuns(controller, logger, validator))
}

// handleStartSync toggles the sync. A new sync answers 202, a stopped one 200.
func handleStartSync(controller *syncsvc.Controller, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := controller.Start(c.Request.Context())
		if errors.Is(err, syncsvc.ErrSyncInProgress) {
			logger.Warn("sync requested while the previous one is stopping")
			abortWithError(c, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			logger.Error("could not start sync", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		status := http.StatusOK
		if result.Started {
			status = http.StatusAccepted
		}
		writeResponse(c, result, status, nil)
	}
}

func handleSyncStatus(controller *syncsvc.Controller, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := controller.Status(c.Request.Context())
		if err != nil {
			logger.Error("could not read sync status", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		writeResponse(c, status, http.StatusOK, nil)
	}
}

func handleListRuns(controller *syncsvc.Controller, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := RunsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from runs request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate runs request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}
		if request.Limit == 0 {
			request.Limit = defaultRunsLimit
		}

		runs, err := controller.Runs(request.Limit)
		if err != nil {
			logger.Error("could not list sync runs", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if runs == nil {
			runs = []kvdb.SyncRun{}
		}
		writeResponse(c, runs, http.StatusOK, nil)
	}
}
