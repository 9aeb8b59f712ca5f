package merkle

import (
	"bytes"

	"go.etcd.io/bbolt"
)

// RangeOptions selects a committed key range.
type RangeOptions struct {
	Prefix     []byte
	Lower      []byte
	Upper      []byte
	Descending bool
}

// KeyValue is a single committed entry returned by a range scan.
type KeyValue struct {
	Key, Value []byte
}

// Range scans committed content only (uncommitted writes are not visible to
// range scans, mirroring RootHash's commit-only view).
func (s *Store) Range(opts RangeOptions) ([]KeyValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KeyValue
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketCommitted).Cursor()
		inRange := func(k []byte) bool {
			if opts.Prefix != nil && !bytes.HasPrefix(k, opts.Prefix) {
				return false
			}
			if opts.Lower != nil && bytes.Compare(k, opts.Lower) < 0 {
				return false
			}
			if opts.Upper != nil && bytes.Compare(k, opts.Upper) > 0 {
				return false
			}
			return true
		}

		if opts.Descending {
			for k, v := c.Last(); k != nil; k, v = c.Prev() {
				if inRange(k) {
					out = append(out, KeyValue{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
				}
			}
			return nil
		}
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if inRange(k) {
				out = append(out, KeyValue{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
			}
		}
		return nil
	})
	return out, err
}
