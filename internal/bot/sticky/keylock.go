package sticky

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

type memberKey struct {
	guildID snowflake.ID
	userID  snowflake.ID
}

// keyLock orders drift and reconcile decisions per member. Entries are never removed; the
// set is bounded by the members observed changing roles.
type keyLock struct {
	locks *xsync.MapOf[memberKey, *sync.Mutex]
}

func newKeyLock() *keyLock {
	return &keyLock{locks: xsync.NewMapOf[memberKey, *sync.Mutex]()}
}

// lock acquires the mutex of key and returns its unlock function.
func (k *keyLock) lock(key memberKey) func() {
	mu, _ := k.locks.LoadOrCompute(key, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	return mu.Unlock
}
