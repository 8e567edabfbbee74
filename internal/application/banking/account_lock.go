package banking

import "sync"

// accountLocks serializes transfers per source account. Holding the
// account's lock from validation through the local debit commit means
// concurrent transfers observe each other's balance effects in order,
// so the sufficient-funds gate cannot be raced. The database-level
// balance guard remains as a second barrier.
type accountLocks struct {
	locks sync.Map // account number -> *sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{}
}

// Lock acquires the mutex for the account number, creating it on first
// use. Locks are never removed; the set of active source accounts is
// bounded in practice.
func (l *accountLocks) Lock(accountNumber string) {
	mu, _ := l.locks.LoadOrStore(accountNumber, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

// Unlock releases the mutex for the account number
func (l *accountLocks) Unlock(accountNumber string) {
	if mu, ok := l.locks.Load(accountNumber); ok {
		mu.(*sync.Mutex).Unlock()
	}
}
