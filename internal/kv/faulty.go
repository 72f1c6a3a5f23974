package kv

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is the default failure returned by FaultyStore.
var ErrInjected = errors.New("kv: injected failure")

// FaultyStore wraps a Store and fails reads or writes on demand.
// It is used to exercise storage failure paths.
type FaultyStore struct {
	Store

	mu        sync.Mutex
	failGet   error
	failSet   error
	setCalls  int
	failAfter int
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner Store) *FaultyStore {
	return &FaultyStore{Store: inner, failAfter: -1}
}

// FailGets makes every Get return err. A nil err restores normal behavior.
func (f *FaultyStore) FailGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = err
}

// FailSets makes every Set and Delete return err. A nil err restores normal behavior.
func (f *FaultyStore) FailSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet = err
	f.failAfter = -1
}

// FailSetsAfter lets n Set calls through and fails every later one with err.
func (f *FaultyStore) FailSetsAfter(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSet = err
	f.failAfter = f.setCalls + n
}

// Get delegates to the wrapped store unless reads are failing.
func (f *FaultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.Store.Get(ctx, key)
}

// Delete delegates to the wrapped store unless writes are failing.
func (f *FaultyStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	err := f.failSet
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Delete(ctx, key)
}

// Set delegates to the wrapped store unless writes are failing.
func (f *FaultyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	f.setCalls++
	err := f.failSet
	if err != nil && f.failAfter >= 0 && f.setCalls <= f.failAfter {
		err = nil
	}
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}
