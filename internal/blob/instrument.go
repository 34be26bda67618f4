package blob

import (
	"context"
	"time"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
)

// ObserveFunc records one backend call for instrumentation.
type ObserveFunc func(operation string, duration time.Duration, err error)

// InstrumentedStore times every backend call and reports it through the
// observer. It adds no behaviour of its own.
type InstrumentedStore struct {
	next    Store
	observe ObserveFunc
}

// NewInstrumentedStore wraps a store with call instrumentation.
func NewInstrumentedStore(next Store, observe ObserveFunc) *InstrumentedStore {
	return &InstrumentedStore{next: next, observe: observe}
}

func (s *InstrumentedStore) Put(ctx context.Context, in PutInput) (*StoredInfo, error) {
	start := time.Now()
	info, err := s.next.Put(ctx, in)
	s.observe("put", time.Since(start), err)
	return info, err
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (*Object, error) {
	start := time.Now()
	obj, err := s.next.Get(ctx, key)
	s.observe("get", time.Since(start), err)
	return obj, err
}

func (s *InstrumentedStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	start := time.Now()
	info, err := s.next.Head(ctx, key)
	s.observe("head", time.Since(start), err)
	return info, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) Copy(ctx context.Context, srcKey, dstKey string, class models.StorageClass, tags map[string]string) error {
	start := time.Now()
	err := s.next.Copy(ctx, srcKey, dstKey, class, tags)
	s.observe("copy", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) Restore(ctx context.Context, key string, days int, tier string) error {
	start := time.Now()
	err := s.next.Restore(ctx, key, days, tier)
	s.observe("restore", time.Since(start), err)
	return err
}

func (s *InstrumentedStore) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := s.next.List(ctx, prefix)
	s.observe("list", time.Since(start), err)
	return keys, err
}
