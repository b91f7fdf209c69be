package staging

import (
	"fmt"

	"github.com/rustyeddy/tradesync/config"
)

// Open builds the store selected by cfg.Type.
func Open(cfg config.StagingConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "pebble":
		return NewPebbleStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown staging type %q", cfg.Type)
	}
}
