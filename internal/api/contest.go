package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/acmtools/ranksync/internal/auth"
	"github.com/acmtools/ranksync/internal/fetch"
	"github.com/acmtools/ranksync/internal/util"
)

type tokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
	Client string `json:"client"`
}

// issueToken exchanges the configured shared key for a bearer token.
func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if h.cfg.Auth.APIKey == "" || req.APIKey != h.cfg.Auth.APIKey {
		util.Error(c, http.StatusUnauthorized, "invalid api key")
		return
	}

	subject := req.Client
	if subject == "" {
		subject = "overlay"
	}
	token, err := auth.GenerateJWT(subject, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	util.Success(c, gin.H{"token": token})
}

func (h *Handler) getContestInfo(c *gin.Context) {
	info := h.store.ContestInfo(c.Param("slug"))
	if info == nil {
		util.Error(c, http.StatusNotFound, "contest info not loaded")
		return
	}
	util.Success(c, info)
}

func (h *Handler) getPreviousRatingData(c *gin.Context) {
	data := h.store.PreviousRatingData(c.Param("slug"))
	if data == nil {
		util.Error(c, http.StatusNotFound, "previous rating data not loaded")
		return
	}
	util.Success(c, data)
}

func (h *Handler) getPreviousRatings(c *gin.Context) {
	ratings := h.store.PreviousRatings(c.Param("slug"))
	if ratings == nil {
		util.Error(c, http.StatusNotFound, "previous ratings not loaded")
		return
	}
	util.Success(c, ratings)
}

func (h *Handler) getPreviousStatus(c *gin.Context) {
	status, ok := h.store.PreviousStatus(c.Param("slug"))
	if !ok {
		util.Error(c, http.StatusNotFound, "contest not tracked")
		return
	}
	util.Success(c, gin.H{"status": status})
}

func (h *Handler) getMyRanking(c *gin.Context) {
	mr := h.store.MyRanking(c.Param("slug"))
	if mr == nil {
		util.Error(c, http.StatusNotFound, "ranking not loaded")
		return
	}
	util.Success(c, mr)
}

func (h *Handler) getUserRecord(c *gin.Context) {
	user, ok := h.store.UserRecord(c.Param("slug"), c.Param("region"), c.Param("username"))
	if !ok {
		util.Error(c, http.StatusNotFound, "user not found")
		return
	}
	util.Success(c, user)
}

func (h *Handler) getUserPrediction(c *gin.Context) {
	real := c.DefaultQuery("real", "true") == "true"
	p, ok := h.store.UserPrediction(c.Param("slug"), c.Param("region"), c.Param("username"), real)
	if !ok {
		util.Error(c, http.StatusNotFound, "prediction not found")
		return
	}
	util.Success(c, p)
}

func (h *Handler) refreshContestInfo(c *gin.Context) {
	info, err := h.syncer.SyncContestInfo(c.Request.Context(), c.Param("slug"))
	if err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	util.Success(c, info)
}

func (h *Handler) refreshRanking(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		util.Error(c, http.StatusBadRequest, "invalid page")
		return
	}
	region := c.DefaultQuery("region", "global")

	if err := h.syncer.SyncRankingPage(c.Request.Context(), c.Param("slug"), page, region); err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	util.Success(c, gin.H{"page": page, "region": region})
}

func (h *Handler) refreshPrevious(c *gin.Context) {
	slug := c.Param("slug")
	if err := h.syncer.SyncPreviousRatingData(c.Request.Context(), slug); err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	status, _ := h.store.PreviousStatus(slug)
	util.Success(c, gin.H{"status": status})
}

func (h *Handler) refreshMyRanking(c *gin.Context) {
	if err := h.syncer.SyncMyRanking(c.Request.Context(), c.Param("slug")); err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	util.Success(c, h.store.MyRanking(c.Param("slug")))
}

func (h *Handler) refreshUserRating(c *gin.Context) {
	slug := c.Param("slug")
	region := c.Param("region")
	username := c.Param("username")

	if err := h.syncer.SyncUserRating(c.Request.Context(), slug, region, username); err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	p, ok := h.store.UserPrediction(slug, region, username, true)
	if !ok {
		util.Error(c, http.StatusInternalServerError, fmt.Errorf("rating for %s/%s not stored", region, username))
		return
	}
	util.Success(c, p)
}

type predictionRequest struct {
	Users []fetch.UserRef `json:"users" binding:"required"`
}

func (h *Handler) refreshPredictions(c *gin.Context) {
	var req predictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	if err := h.syncer.SyncPredictions(c.Request.Context(), c.Param("slug"), req.Users); err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	util.Success(c, gin.H{"users": len(req.Users)})
}

func (h *Handler) refreshDeltas(c *gin.Context) {
	computed := h.syncer.RefreshDeltas(c.Param("slug"))
	util.Success(c, gin.H{"computed": computed})
}
