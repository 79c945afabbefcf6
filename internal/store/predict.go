package store

// Fingerprint encodes the two inputs that invalidate a cached delta into one
// number. The encoding assumes ratings stay well below 10000; otherwise a
// rating overflowing into the rank component would alias two distinct input
// pairs.
func Fingerprint(rank int, oldRating float64) float64 {
	return float64(rank)*10000 + oldRating
}

// EnsureDelta returns the delta for key, invoking compute only when the
// (rank, old rating) fingerprint differs from the last computation. On a
// fingerprint hit the stored delta is returned untouched and cached is true.
// ok is false when the user has no real prediction entry to compute from.
func (s *Store) EnsureDelta(slug, key string, compute func(p RealPrediction) float64) (delta float64, cached, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, found := s.contests[slug]
	if !found {
		return 0, false, false
	}
	p, found := st.RealPredict[key]
	if !found {
		return 0, false, false
	}

	fp := Fingerprint(p.Rank, p.OldRating)
	if p.PreCache != nil && *p.PreCache == fp && p.Delta != nil {
		return *p.Delta, true, true
	}

	delta = compute(*p)
	p.Delta = &delta
	p.PreCache = &fp
	return delta, false, true
}
