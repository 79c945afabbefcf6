package store

// Selectors are read-only projections. Absent contests, users or regions
// yield zero values, never panics. Returned pointers reference data the
// store will not mutate in place after an accepted snapshot; callers must
// treat them as read-only.

func (s *Store) ContestInfo(slug string) *ContestInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return nil
	}
	return st.Info
}

func (s *Store) PreviousRatingData(slug string) *PreviousRatingData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return nil
	}
	return st.Previous.RatingData
}

// PreviousRatings returns a copy of the rating list ordered by the derived
// final rank, or nil when no snapshot was accepted yet.
func (s *Store) PreviousRatings(slug string) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok || st.Previous.Ratings == nil {
		return nil
	}
	out := make([]float64, len(st.Previous.Ratings))
	copy(out, st.Previous.Ratings)
	return out
}

func (s *Store) PreviousStatus(slug string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return "", false
	}
	return st.Previous.Status, true
}

func (s *Store) MyRanking(slug string) *MyRanking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return nil
	}
	return st.MyRanking
}

// UserRecord returns the merged record for one user.
func (s *Store) UserRecord(slug, region, username string) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return UserRecord{}, false
	}
	u, ok := st.Users[Key(region, username)]
	if !ok {
		return UserRecord{}, false
	}
	return *u, true
}

// UserPrediction returns a user's prediction; real selects the locally
// derived pipeline, otherwise the coarse external source.
func (s *Store) UserPrediction(slug, region, username string, real bool) (RealPrediction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return RealPrediction{}, false
	}
	key := Key(region, username)
	if real {
		p, ok := st.RealPredict[key]
		if !ok {
			return RealPrediction{}, false
		}
		return *p, true
	}
	p, ok := st.Predict[key]
	if !ok {
		return RealPrediction{}, false
	}
	return RealPrediction{OldRating: p.OldRating, Delta: p.Delta}, true
}

// RealPredictions returns a snapshot of the real-prediction map for a
// contest. Used by the delta refresh pass.
func (s *Store) RealPredictions(slug string) map[string]RealPrediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.contests[slug]
	if !ok {
		return nil
	}
	out := make(map[string]RealPrediction, len(st.RealPredict))
	for k, p := range st.RealPredict {
		out[k] = *p
	}
	return out
}
