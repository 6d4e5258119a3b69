package progress

import (
	"fmt"
	"sync"
	"time"
)

// KeyedMutex serializes work per key. Entries are reference counted and
// removed once the last holder unlocks, so the map only grows with the
// number of keys in use at the same time.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu      sync.Mutex
	holders int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, exists := k.locks[key]
	if !exists {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.holders++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.holders--
		if l.holders == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// DayKey is the lock key for a student's record on a given day.
func DayKey(studentID int64, day time.Time) string {
	return fmt.Sprintf("%d:%s", studentID, Day(day).Format("2006-01-02"))
}
