package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KeyValue is the part of a JetStream key-value bucket the store uses.
// jetstream.KeyValue satisfies it.
type KeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// NATSStore persists values in a JetStream key-value bucket.
type NATSStore struct {
	kv KeyValue
}

func NewNATSStore(kv KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// DialNATSStore connects to url and opens bucket, creating it when missing.
// The returned close function drains the connection.
func DialNATSStore(ctx context.Context, url, bucket string) (*NATSStore, func(), error) {
	nc, err := nats.Connect(url, nats.Name("openspec"))
	if err != nil {
		return nil, nil, fmt.Errorf("nats store: connect %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("nats store: jetstream: %w", err)
	}
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "openspec editor state",
			History:     1,
		})
	}
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("nats store: bucket %s: %w", bucket, err)
	}
	return NewNATSStore(kv), func() { _ = nc.Drain() }, nil
}

func (s *NATSStore) Load(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("nats store: get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (s *NATSStore) Save(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("nats store: put %s: %w", key, err)
	}
	return nil
}
