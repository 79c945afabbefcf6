package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectorsAbsent(t *testing.T) {
	s := New()

	require.Nil(t, s.ContestInfo("missing"))
	require.Nil(t, s.PreviousRatingData("missing"))
	require.Nil(t, s.PreviousRatings("missing"))
	require.Nil(t, s.MyRanking("missing"))
	require.Nil(t, s.RealPredictions("missing"))

	_, ok := s.PreviousStatus("missing")
	require.False(t, ok)
	_, ok = s.UserRecord("missing", "CN", "alice")
	require.False(t, ok)
	_, ok = s.UserPrediction("missing", "CN", "alice", true)
	require.False(t, ok)
	_, ok = s.UserPrediction("missing", "CN", "alice", false)
	require.False(t, ok)
}

func TestSelectorsAbsentUserInTrackedContest(t *testing.T) {
	s := New()
	s.ApplyContestInfo("weekly-1", &ContestInfo{})

	_, ok := s.UserRecord("weekly-1", "CN", "ghost")
	require.False(t, ok)
	_, ok = s.UserPrediction("weekly-1", "CN", "ghost", true)
	require.False(t, ok)
}

func TestPreviousRatingsReturnsCopy(t *testing.T) {
	s := New()
	s.ApplyPreviousRatingData("weekly-1", previousData(
		PreviousRankRow{Username: "A", Region: "CN", Score: 2, Rating: 1500},
		PreviousRankRow{Username: "B", Region: "CN", Score: 1, Rating: 1400},
	))

	ratings := s.PreviousRatings("weekly-1")
	ratings[0] = -1
	require.Equal(t, []float64{1500, 1400}, s.PreviousRatings("weekly-1"))
}

func TestUserPredictionSelectsPipeline(t *testing.T) {
	s := New()
	coarse := 5.0
	s.ApplyPredictions("weekly-1", []PredictionEntry{
		{Username: "alice", Region: "CN", Delta: &coarse},
	})
	s.SetUserRating("weekly-1", Key("CN", "alice"), 1500, 3, 9)

	real, ok := s.UserPrediction("weekly-1", "CN", "alice", true)
	require.True(t, ok)
	require.Equal(t, 9, real.Rank)

	ext, ok := s.UserPrediction("weekly-1", "CN", "alice", false)
	require.True(t, ok)
	require.Zero(t, ext.Rank)
	require.Equal(t, 5.0, *ext.Delta)
}
