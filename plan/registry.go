package plan

import (
	"fmt"
	"sync"
)

// StorageFactory opens a Storage. Factories run once per notebook so that
// notebooks never share an archive by accident.
type StorageFactory func() (Storage, error)

// storages is the global registry of named Storage factories.
//
// "memory" is registered by default. Other backends such as sqlite are
// added with RegisterStorage before notebooks are created.
var (
	storages = map[string]StorageFactory{
		"memory": func() (Storage, error) { return NewMemoryStorage(), nil },
	}
	mutex sync.RWMutex
)

// GetStorage opens a new Storage from the factory registered under name.
//
// Returns ErrStorageNotFound if name is not registered.
//
// Example:
//
//	store, err := plan.GetStorage(cfg.Storage)
//	if err != nil {
//	    return nil, fmt.Errorf("failed to resolve plan storage: %w", err)
//	}
func GetStorage(name string) (Storage, error) {
	mutex.RLock()
	factory, exists := storages[name]
	mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageNotFound, name)
	}
	return factory()
}

// RegisterStorage adds or replaces a named Storage factory.
//
// Example:
//
//	plan.RegisterStorage("sqlite", func() (plan.Storage, error) {
//	    return sqlite.Open(ctx, "plans.db")
//	})
func RegisterStorage(name string, factory StorageFactory) error {
	if name == "" {
		return ErrEmptyStorageName
	}

	mutex.Lock()
	defer mutex.Unlock()
	storages[name] = factory
	return nil
}
