package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/db/docdb"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/validation"
)

type DocumentStore interface {
	RecordOpen(ctx context.Context, id int64, at time.Time) error
	SetPinned(ctx context.Context, id int64, pinned bool) error
	SetComment(ctx context.Context, id int64, comment *string) error
}

type DocumentURI struct {
	ID int64 `uri:"id" json:"id" validate:"min=1"`
}

type PinRequest struct {
	Pinned *bool `json:"pinned" validate:"required"`
}

// CommentRequest clears the comment when Comment is null.
type CommentRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

func SetupDocuments(router *gin.Engine, logger logger.Logger, store DocumentStore, validator *validation.Validator) {
	router.POST("/documents/:id/open", handleOpenDocument(store, logger, validator))
	router.PUT("/documents/:id/pin", handlePinDocument(store, logger, validator))
	router.PUT("/documents/:id/comment", handleCommentDocument(store, logger, validator))
}

func bindDocumentID(c *gin.Context, logger logger.Logger, validator *validation.Validator) (int64, bool) {
	uri := DocumentURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		logger.Warn("could not extract document id from request path", "err", err.Error())
		abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
		return 0, false
	}
	if err := validator.Validate(uri); err != nil {
		logger.Warn("could not validate document id", "err", err.Error())
		abortWithError(c, http.StatusNotAcceptable, err.Error())
		return 0, false
	}
	return uri.ID, true
}

func writeDocumentUpdate(c *gin.Context, logger logger.Logger, id int64, err error) {
	if errors.Is(err, docdb.ErrNotFound) {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Error("could not update document", "id", id, "err", err.Error())
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeResponse(c, nil, http.StatusNoContent, nil)
}

func handleOpenDocument(store DocumentStore, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindDocumentID(c, logger, validator)
		if !ok {
			return
		}
		writeDocumentUpdate(c, logger, id, store.RecordOpen(c.Request.Context(), id, time.Now()))
	}
}

func handlePinDocument(store DocumentStore, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindDocumentID(c, logger, validator)
		if !ok {
			return
		}

		request := PinRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from pin request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate pin request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		writeDocumentUpdate(c, logger, id, store.SetPinned(c.Request.Context(), id, *request.Pinned))
	}
}

func handleCommentDocument(store DocumentStore, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bindDocumentID(c, logger, validator)
		if !ok {
			return
		}

		request := CommentRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from comment request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate comment request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		writeDocumentUpdate(c, logger, id, store.SetComment(c.Request.Context(), id, request.Comment))
	}
}
