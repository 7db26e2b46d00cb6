package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/facetdex/internal/db"
)

// RPush appends values to the tail of a list.
func (s *Store) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	cmd := s.b().Rpush().Key(key).Element(values...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpRPush, Err: err}
	}
	return nil
}

// BLMove atomically moves the head of src to the tail of dst, blocking up to
// timeout. Returns db.ErrKeyNotFound when the timeout expires with no element.
func (s *Store) BLMove(ctx context.Context, src, dst string, timeout time.Duration) ([]byte, error) {
	cmd := s.b().Blmove().Source(src).Destination(dst).Left().Right().Timeout(timeout.Seconds()).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpBLMove, Err: err}
	}
	return data, nil
}

// LRem removes count occurrences of value from a list.
func (s *Store) LRem(ctx context.Context, key string, count int64, value string) error {
	cmd := s.b().Lrem().Key(key).Count(count).Element(value).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpLRem, Err: err}
	}
	return nil
}

// LLen returns the length of a list.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Llen().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}

// LRange returns list elements between start and stop inclusive.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	elems, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return elems, nil
}
