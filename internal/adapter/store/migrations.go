package store

import (
	"encoding/json"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"smartkb/internal/domain"
)

// Sidecar schema versions. v1 is the original flat layout: parallel
// "texts" and "metadata" buckets with no stored embeddings. v2 stores
// documents and their embedding matrix side by side plus a meta
// bucket. Loading a v1 file succeeds and flags the snapshot so the
// caller re-embeds every record.
const (
	schemaVersionLegacy  = 1
	schemaVersionCurrent = 2
)

var (
	bucketLegacyTexts    = []byte("texts")
	bucketLegacyMetadata = []byte("metadata")

	keySchemaVersion = []byte("schema_version")
	keyDimension     = []byte("dimension")
	keyCount         = []byte("count")
)

func writeSchemaInfo(meta *bbolt.Bucket, count, dimension int) error {
	for _, kv := range []struct {
		key []byte
		val int
	}{
		{keySchemaVersion, schemaVersionCurrent},
		{keyDimension, dimension},
		{keyCount, count},
	} {
		data, err := json.Marshal(kv.val)
		if err != nil {
			return err
		}
		if err := meta.Put(kv.key, data); err != nil {
			return err
		}
	}
	return nil
}

// detectSchema probes the bucket layout. The version key wins when
// present; otherwise the legacy buckets identify a v1 file. Anything
// else is treated as current so an empty or partial file loads as an
// empty snapshot instead of failing.
func detectSchema(tx *bbolt.Tx) int {
	if meta := tx.Bucket(bucketMeta); meta != nil {
		if data := meta.Get(keySchemaVersion); data != nil {
			var v int
			if err := json.Unmarshal(data, &v); err == nil && v > 0 {
				return v
			}
		}
	}
	if tx.Bucket(bucketLegacyTexts) != nil && tx.Bucket(bucketDocuments) == nil {
		return schemaVersionLegacy
	}
	return schemaVersionCurrent
}

// loadLegacy reads the v1 layout. Embeddings were never stored in
// this schema, so the snapshot is flagged for re-embedding.
func loadLegacy(tx *bbolt.Tx) (*Snapshot, error) {
	snap := &Snapshot{Legacy: true}

	texts := tx.Bucket(bucketLegacyTexts)
	if texts == nil {
		return snap, nil
	}

	var metadataByPos map[int]domain.Metadata
	if metas := tx.Bucket(bucketLegacyMetadata); metas != nil {
		metadataByPos = make(map[int]domain.Metadata)
		err := metas.ForEach(func(k, v []byte) error {
			var m domain.Metadata
			if err := json.Unmarshal(v, &m); err != nil {
				// Tolerate unreadable metadata; the text is still worth keeping.
				return nil
			}
			metadataByPos[btoi(k)] = m
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	err := texts.ForEach(func(k, v []byte) error {
		var text string
		if err := json.Unmarshal(v, &text); err != nil {
			// v1 writers also stored raw strings.
			text = string(v)
		}
		snap.Documents = append(snap.Documents, domain.Chunk{
			Text:     text,
			Metadata: metadataByPos[btoi(k)],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode legacy texts: %w", err)
	}
	return snap, nil
}

// WriteLegacy writes a v1-layout sidecar. It exists for upgrade tests
// and for interoperating with stores produced before embeddings were
// persisted.
func WriteLegacy(path string, texts []string, metadata []domain.Metadata) error {
	os.Remove(path)

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("open sidecar: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		tb, err := tx.CreateBucketIfNotExists(bucketLegacyTexts)
		if err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(bucketLegacyMetadata)
		if err != nil {
			return err
		}
		for i, text := range texts {
			data, err := json.Marshal(text)
			if err != nil {
				return err
			}
			if err := tb.Put(itob(i), data); err != nil {
				return err
			}
			if i < len(metadata) && metadata[i] != nil {
				m, err := json.Marshal(metadata[i])
				if err != nil {
					return err
				}
				if err := mb.Put(itob(i), m); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
