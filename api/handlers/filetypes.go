package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/filetypes"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/validation"
)

type AddFiletypeRequest struct {
	FileType string `json:"file_type" validate:"required,max=20"`
	Category string `json:"category" validate:"required,valid_category"`
}

type SetFiletypeAllowedRequest struct {
	Allowed *bool `json:"allowed" validate:"required"`
}

func SetupFiletypes(router *gin.Engine, logger logger.Logger, registry *filetypes.Registry, validator *validation.Validator) {
	router.GET("/filetypes", handleListFiletypes(registry, logger))
	router.POST("/filetypes", handleAddFiletype(registry, logger, validator))
	router.PUT("/filetypes/:ext", handleSetFiletypeAllowed(registry, logger, validator))
}

func handleListFiletypes(registry *filetypes.Registry, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := registry.List(c.Request.Context())
		if err != nil {
			logger.Error("could not list file types", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []db.FiletypeEntry{}
		}
		writeResponse(c, entries, http.StatusOK, nil)
	}
}

func handleAddFiletype(registry *filetypes.Registry, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := AddFiletypeRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from file type request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate file type request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		err := registry.Add(c.Request.Context(), request.FileType, request.Category)
		if errors.Is(err, filetypes.ErrUnknownFiletype) || errors.Is(err, filetypes.ErrInvalidCategory) {
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		writeResponse(c, db.FiletypeEntry{
			FileType:    filetypes.Normalize(request.FileType),
			Category:    request.Category,
			Allowed:     true,
			AddedByUser: true,
		}, http.StatusCreated, nil)
	}
}

func handleSetFiletypeAllowed(registry *filetypes.Registry, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SetFiletypeAllowedRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from file type update", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate file type update", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		ext := c.Param("ext")
		err := registry.SetAllowed(c.Request.Context(), ext, *request.Allowed)
		if errors.Is(err, docdb.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			logger.Error("could not update file type", "file_type", ext, "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}
