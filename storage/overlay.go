package storage

import "sync"

// Overlay stages writes and deletes on top of a base database. Nothing
// reaches the base until Commit is called, so a transition that fails
// midway leaves the base untouched: callers run each state transition
// against a fresh overlay and commit only on success.
type Overlay struct {
	mu      sync.RWMutex
	base    Database
	writes  map[string][]byte
	deletes map[string]bool
}

// NewOverlay wraps the base database in an empty overlay.
func NewOverlay(base Database) *Overlay {
	return &Overlay{
		base:    base,
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := string(key)
	o.writes[k] = append([]byte(nil), value...)
	delete(o.deletes, k)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	k := string(key)
	if o.deletes[k] {
		return nil, ErrNotFound
	}
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.base.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	k := string(key)
	if o.deletes[k] {
		return false, nil
	}
	if _, ok := o.writes[k]; ok {
		return true, nil
	}
	return o.base.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = true
	return nil
}

// Close discards the staged changes without touching the base.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]bool)
}

// Commit flushes the staged writes and deletes to the base database.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k := range o.deletes {
		if err := o.base.Delete([]byte(k)); err != nil {
			return err
		}
	}
	for k, value := range o.writes {
		if err := o.base.Put([]byte(k), value); err != nil {
			return err
		}
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]bool)
	return nil
}
