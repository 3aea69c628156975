package refillkit

import (
	"bytes"

	"github.com/boltdb/bolt"
	"go.llib.dev/frameless/pkg/errorkit"

	"github.com/pushpull/pushpull/pkg/genkit"
)

const ErrBucketNotFound errorkit.Error = "refillkit: bucket not found"

// KV is a record read from a bolt bucket.
// Key and Value are copies, they remain valid after the read transaction ends.
type KV struct {
	Key   []byte
	Value []byte
}

// Bolt pages through a bucket with a cursor, pushing up to pageSize records on every refill.
// Each refill runs in its own read transaction and resumes after the last key it delivered.
func Bolt(db *bolt.DB, bucket []byte, pageSize int) genkit.Source[KV] {
	return &boltSource{
		DB:       db,
		Bucket:   bucket,
		PageSize: batchSize(pageSize),
	}
}

type boltSource struct {
	DB       *bolt.DB
	Bucket   []byte
	PageSize int

	last []byte
}

func (src *boltSource) Refill(p genkit.Pusher[KV]) error {
	var (
		page []KV
		more bool
	)
	err := src.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(src.Bucket)
		if b == nil {
			return ErrBucketNotFound.F("%s", src.Bucket)
		}
		c := b.Cursor()
		k, v := src.seek(c)
		for ; k != nil; k, v = c.Next() {
			if len(page) == src.PageSize {
				more = true
				break
			}
			page = append(page, KV{
				Key:   bytes.Clone(k),
				Value: bytes.Clone(v),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, kv := range page {
		if err := p.Push(kv); err != nil {
			return err
		}
		src.last = kv.Key
	}
	if !more {
		p.Done()
	}
	return nil
}

func (src *boltSource) seek(c *bolt.Cursor) ([]byte, []byte) {
	if src.last == nil {
		return c.First()
	}
	k, v := c.Seek(src.last)
	if k != nil && bytes.Equal(k, src.last) {
		return c.Next()
	}
	return k, v
}
