package api

import (
	"github.com/gin-gonic/gin"

	"github.com/acmtools/ranksync/internal/config"
	"github.com/acmtools/ranksync/internal/pubsub"
	"github.com/acmtools/ranksync/internal/store"
	"github.com/acmtools/ranksync/internal/syncer"
)

// NewRouter creates and configures the Gin engine.
func NewRouter(cfg *config.Config, st *store.Store, sy *syncer.Syncer, broker *pubsub.Broker) *gin.Engine {
	r := gin.Default()

	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(RequestIDMiddleware())

	h := NewHandler(cfg, st, sy, broker)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/token", h.issueToken)

		// Websocket event stream per contest
		v1.GET("/ws/contests/:slug/events", h.handleContestEvents)

		// Read-only projections of the store
		v1.GET("/contests/:slug/info", h.getContestInfo)
		v1.GET("/contests/:slug/previous", h.getPreviousRatingData)
		v1.GET("/contests/:slug/previous/ratings", h.getPreviousRatings)
		v1.GET("/contests/:slug/previous/status", h.getPreviousStatus)
		v1.GET("/contests/:slug/myranking", h.getMyRanking)
		v1.GET("/contests/:slug/users/:region/:username", h.getUserRecord)
		v1.GET("/contests/:slug/users/:region/:username/predict", h.getUserPrediction)

		// Refresh endpoints trigger upstream fetches and mutate the store
		authed := v1.Group("/contests/:slug/refresh")
		authed.Use(AuthMiddleware(cfg.Auth.JWT.Secret))
		{
			authed.POST("/info", h.refreshContestInfo)
			authed.POST("/ranking", h.refreshRanking)
			authed.POST("/previous", h.refreshPrevious)
			authed.POST("/myranking", h.refreshMyRanking)
			authed.POST("/users/:region/:username/rating", h.refreshUserRating)
			authed.POST("/predictions", h.refreshPredictions)
			authed.POST("/deltas", h.refreshDeltas)
		}
	}

	return r
}
