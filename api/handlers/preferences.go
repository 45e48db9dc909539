package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/validation"
)

type PreferencesStore interface {
	GetUserPreferences(ctx context.Context) (db.UserPreferences, error)
	SaveUserPreferences(ctx context.Context, prefs db.UserPreferences) error
}

type ForbiddenSetter interface {
	SetUserForbidden(csv string)
}

type PreferencesRequest struct {
	FirstLaunchDone         bool   `json:"first_launch_done"`
	OnboardingDone          bool   `json:"onboarding_done"`
	LaunchAtStartup         bool   `json:"launch_at_startup"`
	ShowInDock              bool   `json:"show_in_dock"`
	GlobalShortcutEnabled   bool   `json:"global_shortcut_enabled"`
	GlobalShortcut          string `json:"global_shortcut" validate:"max=100"`
	AutomaticBackgroundSync bool   `json:"automatic_background_sync"`
	DetailedScan            bool   `json:"detailed_scan"`
	DisallowedPaths         string `json:"disallowed_paths" validate:"max=4096"`
}

func (r PreferencesRequest) toPreferences() db.UserPreferences {
	return db.UserPreferences(r)
}

func SetupPreferences(router *gin.Engine, logger logger.Logger, store PreferencesStore, policy ForbiddenSetter, validator *validation.Validator) {
	router.GET("/preferences", handleGetPreferences(store, logger))
	router.PUT("/preferences", handleSavePreferences(store, policy, logger, validator))
}

func handleGetPreferences(store PreferencesStore, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefs, err := store.GetUserPreferences(c.Request.Context())
		if err != nil {
			logger.Error("could not read preferences", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		writeResponse(c, prefs, http.StatusOK, nil)
	}
}

// handleSavePreferences replaces the preferences. Disallowed paths apply right away, not only
// from the next sync.
func handleSavePreferences(store PreferencesStore, policy ForbiddenSetter, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := PreferencesRequest{}
		if err := c.ShouldBindJSON(&request); err != nil {
			logger.Warn("could not extract expected params from preferences request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate preferences request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		prefs := request.toPreferences()
		if err := store.SaveUserPreferences(c.Request.Context(), prefs); err != nil {
			logger.Error("could not save preferences", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		policy.SetUserForbidden(prefs.DisallowedPaths)

		writeResponse(c, prefs, http.StatusOK, nil)
	}
}
