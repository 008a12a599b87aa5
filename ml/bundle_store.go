package ml

import (
	"sync/atomic"
)

// BundleStore holds the predictor currently used for serving. Replacing it
// swaps the whole predictor; readers never see a mix of two bundles.
type BundleStore struct {
	current atomic.Pointer[Predictor]
}

func NewBundleStore(initial *Predictor) *BundleStore {
	s := &BundleStore{}
	if initial != nil {
		s.current.Store(initial)
	}
	return s
}

// Current returns the active predictor, or nil before the first load.
func (s *BundleStore) Current() *Predictor {
	return s.current.Load()
}

// Swap installs next and returns the predictor it replaced.
func (s *BundleStore) Swap(next *Predictor) *Predictor {
	return s.current.Swap(next)
}

// Reload loads path and swaps it in only if it is a valid bundle.
func (s *BundleStore) Reload(path string) (*Predictor, error) {
	next, err := LoadPredictor(path)
	if err != nil {
		return nil, err
	}
	s.Swap(next)
	return next, nil
}
