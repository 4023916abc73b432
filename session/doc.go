// Package session keeps finished conference runs in process memory so they
// can be listed and inspected after their event sequence has ended.
//
// An InMemoryStore is fed through graph hooks:
//
//	store := session.NewInMemoryStore()
//	conf := roundtable.New(func(o *roundtable.Options) {
//	    o.Hooks = store.Hooks()
//	})
//
// Nothing survives a process restart.
package session
