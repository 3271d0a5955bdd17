// Package lock serializes work per key: ledger writes per account and snapshot
// writes per source transaction.
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrNotObtained is returned when a lock could not be acquired in time.
var ErrNotObtained = errors.New("lock not obtained")

// Locker grants exclusive access to a key until the returned func is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LockAll acquires every distinct key in sorted order so that two callers
// locking overlapping sets cannot deadlock.
func LockAll(ctx context.Context, l Locker, keys ...string) (func(), error) {
	uniq := make(map[string]struct{}, len(keys))
	sorted := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := uniq[k]; ok {
			continue
		}
		uniq[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range sorted {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}
