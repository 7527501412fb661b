package rewind

import (
	"context"
	"time"

	"go.etcd.io/bbolt"
)

// BoltSerializer persists histories to a Bolt database file, one value
// per identifier in a single bucket
type BoltSerializer struct {
	db *bbolt.DB
}

var historiesBucket = []byte("histories")

func NewBoltSerializer(path string) (*BoltSerializer, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(historiesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltSerializer{db: db}, nil
}

func (b *BoltSerializer) Close() error {
	return b.db.Close()
}

func (b *BoltSerializer) Save(_ context.Context, id StackID, h History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(historiesBucket).Put([]byte(JoinKey(id)), data)
	})
}

func (b *BoltSerializer) Load(
	_ context.Context, id StackID,
) (History, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(historiesBucket).Get([]byte(JoinKey(id)))
		if v == nil {
			return ErrHistoryNotFound
		}
		data = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeHistory(data)
}
