package api

import (
	"github.com/acmtools/ranksync/internal/config"
	"github.com/acmtools/ranksync/internal/pubsub"
	"github.com/acmtools/ranksync/internal/store"
	"github.com/acmtools/ranksync/internal/syncer"
)

// Handler holds the dependencies shared by all API handlers.
type Handler struct {
	cfg    *config.Config
	store  *store.Store
	syncer *syncer.Syncer
	broker *pubsub.Broker
}

func NewHandler(cfg *config.Config, st *store.Store, sy *syncer.Syncer, broker *pubsub.Broker) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  st,
		syncer: sy,
		broker: broker,
	}
}
