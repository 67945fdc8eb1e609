package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docstack/docstack/internal/config"
)

// Store persists attachment payloads by key. Keys are opaque ids chosen by
// the attachment service; stores never interpret them.
type Store interface {
	Save(ctx context.Context, key string, r io.ReadSeekCloser, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Factory func(args interface{}) (Store, error)

// factories is filled by the store implementations' init functions; nothing
// registers after program start, so no locking is needed.
var factories = map[string]Factory{}

func register(name string, factory Factory) {
	factories[strings.ToLower(name)] = factory
}

// New builds the store named by cfg.Type, handing cfg.Data to its factory.
func New(cfg config.FileStoreConfig) (Store, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Type))
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown file store type %q", cfg.Type)
	}
	return factory(cfg.Data)
}

// decodeConfig re-marshals the raw config blob into the store's own struct.
func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
