package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/api/handlers"
	"github.com/meghashyamc/buzee/app"
	"github.com/meghashyamc/buzee/validation"
)

func setupRoutes(router *gin.Engine, a *app.App, validator *validation.Validator) {
	router.GET("/health", health())

	handlers.SetupSearch(router, a.Logger, a.Search, validator)
	handlers.SetupHistory(router, a.Logger, a.History, validator)
	handlers.SetupSync(router, a.Logger, a.Sync, validator)
	handlers.SetupLists(router, a.Logger, a.Policy, a.Store, validator)
	handlers.SetupFiletypes(router, a.Logger, a.Filetypes, validator)
	handlers.SetupDocuments(router, a.Logger, a.Store, validator)
	handlers.SetupPreferences(router, a.Logger, a.Store, a.Policy, validator)
	handlers.SetupEvents(router, a.Logger, a.Events)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())

	return router
}
