package rewind

import (
	"context"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

type (
	// EtcdSerializer persists histories to an etcd cluster, one key per
	// identifier under a common prefix
	EtcdSerializer struct {
		client *clientv3.Client
		prefix string
	}

	EtcdConfig struct {
		Logger      *zap.Logger
		Prefix      string
		Endpoints   []string
		DialTimeout time.Duration
	}
)

const (
	DefaultEtcdPrefix      = "/rewind/history/"
	DefaultEtcdDialTimeout = 5 * time.Second
)

func NewEtcdSerializer(cfg EtcdConfig) (*EtcdSerializer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultEtcdDialTimeout
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultEtcdPrefix
	}

	return &EtcdSerializer{client: client, prefix: prefix}, nil
}

func (e *EtcdSerializer) Close() error {
	return e.client.Close()
}

func (e *EtcdSerializer) Save(
	ctx context.Context, id StackID, h History,
) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, e.buildKey(id), string(data))
	return err
}

func (e *EtcdSerializer) Load(
	ctx context.Context, id StackID,
) (History, error) {
	resp, err := e.client.Get(ctx, e.buildKey(id))
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, ErrHistoryNotFound
	}
	return decodeHistory(resp.Kvs[0].Value)
}

// Delete removes the persisted history for an identifier
func (e *EtcdSerializer) Delete(ctx context.Context, id StackID) error {
	_, err := e.client.Delete(ctx, e.buildKey(id))
	return err
}

func (e *EtcdSerializer) buildKey(id StackID) string {
	return e.prefix + JoinKey(id)
}
