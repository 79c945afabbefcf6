// Package syncer drives the fetch→upsert pipeline: every operation resolves
// one upstream source and applies it to the store through the matching
// upsert, then announces the change on the broker.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/acmtools/ranksync/internal/fetch"
	"github.com/acmtools/ranksync/internal/predict"
	"github.com/acmtools/ranksync/internal/pubsub"
	"github.com/acmtools/ranksync/internal/store"
)

const (
	StreamInfo     = "info"
	StreamRanking  = "ranking"
	StreamPrevious = "previous"
	StreamMyRank   = "myrank"
	StreamRating   = "rating"
	StreamPredict  = "predict"
	StreamDelta    = "delta"
)

type Syncer struct {
	store     *store.Store
	client    *fetch.Client
	messenger fetch.Messenger
	broker    *pubsub.Broker
	predictor predict.Predictor
	histories *lru.Cache[string, []store.Attendance]
}

func New(st *store.Store, client *fetch.Client, messenger fetch.Messenger, broker *pubsub.Broker, predictor predict.Predictor, historySize int) (*Syncer, error) {
	if historySize <= 0 {
		historySize = 512
	}
	histories, err := lru.New[string, []store.Attendance](historySize)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		store:     st,
		client:    client,
		messenger: messenger,
		broker:    broker,
		predictor: predictor,
		histories: histories,
	}, nil
}

func (s *Syncer) publish(slug, stream, data string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(slug, pubsub.FormatEvent(stream, data))
}

// SyncContestInfo fetches and stores contest metadata.
func (s *Syncer) SyncContestInfo(ctx context.Context, slug string) (*store.ContestInfo, error) {
	info, err := s.client.GetContestInfo(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.store.ApplyContestInfo(slug, info)
	s.publish(slug, StreamInfo, slug)
	return info, nil
}

// SyncRankingPage fetches one ranking page for a region and merges it.
func (s *Syncer) SyncRankingPage(ctx context.Context, slug string, page int, region string) error {
	rp, err := s.client.GetContest(ctx, slug, page, region)
	if err != nil {
		return err
	}
	s.store.ApplyRankingPage(slug, rp)
	s.publish(slug, StreamRanking, fmt.Sprintf("%s/%d", region, page))
	return nil
}

// SyncPreviousRatingData fetches the bulk historical snapshot. A fetch
// failure is recorded as the failed status and also returned, so callers may
// retry while consumers see the failure.
func (s *Syncer) SyncPreviousRatingData(ctx context.Context, slug string) error {
	s.store.BeginPreviousFetch(slug)
	data, err := s.client.GetPreviousRatingData(ctx, slug)
	if err != nil {
		s.store.FailPreviousFetch(slug)
		s.publish(slug, StreamPrevious, string(store.StatusFailed))
		return err
	}
	s.store.ApplyPreviousRatingData(slug, data)
	s.publish(slug, StreamPrevious, string(store.StatusSucceeded))
	return nil
}

// SyncMyRanking fetches and stores the requesting user's live global rank.
func (s *Syncer) SyncMyRanking(ctx context.Context, slug string) error {
	mr, err := s.client.GetGlobalRanking(ctx, slug)
	if err != nil {
		return err
	}
	s.store.ApplyMyRanking(slug, mr)
	s.publish(slug, StreamMyRank, slug)
	return nil
}

type messengerRating struct {
	UserContestRankingHistory []store.Attendance `json:"userContestRankingHistory"`
}

// history returns a user's attended contest history, region-routed: local
// users through the site client, cross-region users through the privileged
// process. Results are cached.
func (s *Syncer) history(ctx context.Context, region, username string) ([]store.Attendance, error) {
	key := store.Key(region, username)
	if h, ok := s.histories.Get(key); ok {
		return h, nil
	}

	var raw []store.Attendance
	if strings.EqualFold(region, "cn") {
		h, err := s.client.GetRating(ctx, username)
		if err != nil {
			return nil, err
		}
		raw = h
	} else {
		resp, err := s.messenger.Request(ctx, fetch.Message{
			Type:     fetch.MessageGetUserRanking,
			Username: username,
		})
		if err != nil {
			return nil, err
		}
		var mr messengerRating
		if err := json.Unmarshal(resp, &mr); err != nil {
			return nil, fmt.Errorf("decode user ranking for %s: %w", username, err)
		}
		raw = mr.UserContestRankingHistory
	}

	attended := store.AttendedOnly(raw)
	s.histories.Add(key, attended)
	return attended, nil
}

// SyncUserRating resolves a user's rating as of the contest start and stores
// it. Used for users absent from the historical snapshot. Contest info is
// fetched first when the start time is not known yet.
func (s *Syncer) SyncUserRating(ctx context.Context, slug, region, username string) error {
	info := s.store.ContestInfo(slug)
	if info == nil {
		var err error
		info, err = s.SyncContestInfo(ctx, slug)
		if err != nil {
			return err
		}
	}

	history, err := s.history(ctx, region, username)
	if err != nil {
		return err
	}
	hr := store.RatingAt(history, info.Contest.StartTime)
	s.store.ApplyUserRating(slug, region, username, hr)
	s.publish(slug, StreamRating, store.Key(region, username))
	return nil
}

// SyncPredictions pulls entries from the external prediction source for a
// set of users and stores them in the coarse predict map.
func (s *Syncer) SyncPredictions(ctx context.Context, slug string, users []fetch.UserRef) error {
	resp, err := s.messenger.Request(ctx, fetch.Message{
		Type:        fetch.MessageGetPrediction,
		ContestSlug: slug,
		Users:       users,
	})
	if err != nil {
		return err
	}
	var entries []store.PredictionEntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return fmt.Errorf("decode prediction entries: %w", err)
	}
	s.store.ApplyPredictions(slug, entries)
	s.publish(slug, StreamPredict, slug)
	return nil
}

// RefreshDeltas recomputes deltas for every ranked user whose fingerprint
// changed since the last run and reports how many predictor invocations
// actually happened.
func (s *Syncer) RefreshDeltas(slug string) int {
	ratings := s.store.PreviousRatings(slug)
	computed := 0
	for key, p := range s.store.RealPredictions(slug) {
		if p.Rank <= 0 {
			continue
		}
		_, cached, ok := s.store.EnsureDelta(slug, key, func(p store.RealPrediction) float64 {
			return s.predictor.Predict(p.Rank, p.Acc, p.OldRating, ratings)
		})
		if ok && !cached {
			computed++
		}
	}
	if computed > 0 {
		s.publish(slug, StreamDelta, fmt.Sprintf("%d", computed))
	}
	zap.S().Debugf("delta refresh for %s: %d recomputed", slug, computed)
	return computed
}
