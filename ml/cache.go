package ml

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedPredictor memoises successful predictions per record. The model is
// immutable, so a cached answer never goes stale.
type CachedPredictor struct {
	next  ModelProvider
	cache *lru.Cache[PatientRecord, Prediction]
}

// NewCachedPredictor wraps next with an LRU of the given size. A size of
// zero or less returns next unchanged.
func NewCachedPredictor(next ModelProvider, size int) (ModelProvider, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[PatientRecord, Prediction](size)
	if err != nil {
		return nil, err
	}
	return &CachedPredictor{next: next, cache: cache}, nil
}

func (c *CachedPredictor) Predict(ctx context.Context, record PatientRecord) (Prediction, error) {
	if prediction, ok := c.cache.Get(record); ok {
		return prediction, nil
	}
	prediction, err := c.next.Predict(ctx, record)
	if err != nil {
		return Prediction{}, err
	}
	c.cache.Add(record, prediction)
	return prediction, nil
}

func (c *CachedPredictor) Status() ModelStatus {
	return c.next.Status()
}

func (c *CachedPredictor) Len() int {
	return c.cache.Len()
}
