package subscriptions

import "sync/atomic"

// Identity caches the Umnico account id. Only the manager writes it; the
// event dispatcher reads it through AccountID.
type Identity struct {
	accountID atomic.Int64
}

// NewIdentity seeds the cache. A seed of zero means unresolved.
func NewIdentity(seed int64) *Identity {
	i := &Identity{}
	i.accountID.Store(seed)
	return i
}

func (i *Identity) AccountID() (int64, bool) {
	id := i.accountID.Load()
	return id, id != 0
}

func (i *Identity) set(id int64) {
	i.accountID.Store(id)
}
