package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoEntry struct {
	payload   []byte
	writtenAt time.Time
}

// memo is the bounded in-process tier. It keeps the persisted write time so
// staleness never depends on how long an entry has been resident.
type memo struct {
	lru *lru.Cache[string, memoEntry]
}

func newMemo(capacity int) (*memo, error) {
	c, err := lru.New[string, memoEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &memo{lru: c}, nil
}

func (m *memo) get(key string) (memoEntry, bool) { return m.lru.Get(key) }
func (m *memo) put(key string, e memoEntry)      { m.lru.Add(key, e) }
func (m *memo) remove(key string)                { m.lru.Remove(key) }
func (m *memo) purge()                           { m.lru.Purge() }
func (m *memo) len() int                         { return m.lru.Len() }
