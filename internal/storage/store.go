// Package storage provides the durable key-value port the session
// coordinator persists through. The interface mirrors a browser storage
// area: flat string keys, last-write-wins, always available. Callers must
// tolerate a read returning a miss.
package storage

// Store is the injectable storage port. Implementations must be safe for
// concurrent use from multiple goroutines.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	Keys() []string
	Clear()
}
