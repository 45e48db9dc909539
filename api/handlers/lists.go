package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/pathpolicy"
	"github.com/meghashyamc/buzee/validation"
)

// ListStore is what the list endpoints need beyond the policy itself.
type ListStore interface {
	ListEntries(ctx context.Context, list db.ListName) ([]db.ListEntry, error)
	ResetParsed(ctx context.Context, path string, isFolder bool) error
}

type ListURI struct {
	List string `uri:"list" json:"list" validate:"required,valid_list"`
}

type ListEntryRequest struct {
	Path           string `json:"path" validate:"required,valid_path,max=4096"`
	IsFolder       bool   `json:"is_folder"`
	IgnoreIndexing bool   `json:"ignore_indexing"`
	IgnoreContent  bool   `json:"ignore_content"`
}

type RemoveListEntryRequest struct {
	Path string `form:"path" validate:"required,valid_path,max=4096"`
}

func SetupLists(router *gin.Engine, logger logger.Logger, policy *pathpolicy.Policy, store ListStore, validator *validation.Validator) {
	router.GET("/lists/:list", handleGetList(store, logger, validator))
	router.POST("/lists/:list", handleAddListEntry(policy, store, logger, validator))
	router.DELETE("/lists/:list", handleRemoveListEntry(policy, logger, validator))
}

func bindList(c *gin.Context, logger logger.Logger, validator *validation.Validator) (db.ListName, bool) {
	uri := ListURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		logger.Warn("could not extract list from request path", "err", err.Error())
		abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
		return "", false
	}
	if err := validator.Validate(uri); err != nil {
		logger.Warn("could not validate list", "err", err.Error())
		abortWithError(c, http.StatusNotAcceptable, err.Error())
		return "", false
	}
	return db.ListName(uri.List), true
}

func handleGetList(store ListStore, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, ok := bindList(c, logger, validator)
		if !ok {
			return
		}

		entries, err := store.ListEntries(c.Request.Context(), list)
		if err != nil {
			logger.Error("could not read list", "list", string(list), "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []db.ListEntry{}
		}
		writeResponse(c, entries, http.StatusOK, nil)
	}
}

// handleAddListEntry stores the entry. Files under a new ignore entry are scheduled for
// re-parsing so the next sync drops content already in the index; the store does the same
// for allow entries.
func handleAddListEntry(policy *pathpolicy.Policy, store ListStore, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, ok := bindList(c, logger, validator)
		if !ok {
			return
		}

		request := ListEntryRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from list entry request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate list entry request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		entry := db.ListEntry{
			Path:           request.Path,
			IsFolder:       request.IsFolder,
			IgnoreIndexing: request.IgnoreIndexing,
			IgnoreContent:  request.IgnoreContent,
		}
		ctx := c.Request.Context()
		if err := policy.Reconcile(ctx, entry, list); err != nil {
			logger.Error("could not update list", "list", string(list), "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if list == db.ListIgnore {
			if err := store.ResetParsed(ctx, request.Path, request.IsFolder); err != nil {
				logger.Warn("could not schedule re-parse after list change", "path", request.Path, "err", err.Error())
			}
		}

		writeResponse(c, entry, http.StatusCreated, nil)
	}
}

func handleRemoveListEntry(policy *pathpolicy.Policy, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, ok := bindList(c, logger, validator)
		if !ok {
			return
		}

		request := RemoveListEntryRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from list removal request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate list removal request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		err := policy.Remove(c.Request.Context(), request.Path, list)
		if errors.Is(err, docdb.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			logger.Error("could not remove list entry", "list", string(list), "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}
