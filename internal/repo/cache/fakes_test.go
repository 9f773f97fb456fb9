package cache

import (
	"context"
	"errors"
	"time"
)

// fakeListCache implements ListCache with in-memory lists, matching Redis
// semantics closely enough for store tests.
type fakeListCache struct {
	lists map[string][]string
	ttls  map[string]time.Duration
	err   error
}

func newFakeListCache() *fakeListCache {
	return &fakeListCache{
		lists: make(map[string][]string),
		ttls:  make(map[string]time.Duration),
	}
}

func (f *fakeListCache) LPush(_ context.Context, key string, value string) error {
	if f.err != nil {
		return f.err
	}
	f.lists[key] = append([]string{value}, f.lists[key]...)
	return nil
}

func (f *fakeListCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	list := f.lists[key]
	length := int64(len(list))
	if stop < 0 {
		stop = length + stop
	}
	if start >= length {
		return nil, nil
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (f *fakeListCache) LTrim(_ context.Context, key string, start, stop int64) error {
	if f.err != nil {
		return f.err
	}
	list := f.lists[key]
	length := int64(len(list))
	if stop < 0 {
		stop = length + stop
	}
	if start >= length {
		f.lists[key] = nil
		return nil
	}
	if stop >= length {
		stop = length - 1
	}
	f.lists[key] = list[start : stop+1]
	return nil
}

func (f *fakeListCache) LSet(_ context.Context, key string, index int64, value string) error {
	if f.err != nil {
		return f.err
	}
	list := f.lists[key]
	if index < 0 || index >= int64(len(list)) {
		return errors.New("index out of range")
	}
	list[index] = value
	return nil
}

func (f *fakeListCache) LRem(_ context.Context, key string, count int64, value string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var removed int64
	var out []string
	for _, item := range f.lists[key] {
		if item == value && (count == 0 || removed < count) {
			removed++
			continue
		}
		out = append(out, item)
	}
	f.lists[key] = out
	return removed, nil
}

func (f *fakeListCache) LLen(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.lists[key])), nil
}

func (f *fakeListCache) Del(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.lists, key)
	return nil
}

func (f *fakeListCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.ttls[key] = ttl
	return nil
}

// fakeKVCache implements KVCache with an in-memory map.
type fakeKVCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeKVCache() *fakeKVCache {
	return &fakeKVCache{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeKVCache) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return value, nil
}

func (f *fakeKVCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKVCache) Del(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}
