package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"smartkb/internal/domain"
)

var (
	bucketDocuments  = []byte("documents")
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
)

// storedChunk is the on-disk form of one corpus entry.
type storedChunk struct {
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata,omitempty"`
}

// Snapshot is the state loaded from a sidecar file. When Legacy is
// set the snapshot came from the v1 schema, which stored no
// embeddings; the caller must recompute them and rebuild the index.
type Snapshot struct {
	Documents  []domain.Chunk
	Embeddings [][]float32
	Legacy     bool
}

// Save writes a full snapshot of the corpus and embedding matrix to
// the sidecar at path. The snapshot is written to a temp file and
// renamed into place so readers and file watchers never observe a
// torn sidecar.
func Save(path string, documents []domain.Chunk, embeddings [][]float32) error {
	if len(documents) != len(embeddings) {
		return fmt.Errorf("corpus/matrix size mismatch: %d documents, %d embeddings", len(documents), len(embeddings))
	}

	tmp := path + ".tmp"
	if err := writeSidecar(tmp, documents, embeddings); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("install sidecar: %w", err)
	}
	return nil
}

func writeSidecar(path string, documents []domain.Chunk, embeddings [][]float32) error {
	// A leftover temp file from a crashed save would fail the open.
	os.Remove(path)

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("open sidecar: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		docs, err := tx.CreateBucketIfNotExists(bucketDocuments)
		if err != nil {
			return err
		}
		embs, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		if err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}

		for i, chunk := range documents {
			data, err := json.Marshal(storedChunk{Text: chunk.Text, Metadata: chunk.Metadata})
			if err != nil {
				return err
			}
			if err := docs.Put(itob(i), data); err != nil {
				return err
			}
			vec, err := json.Marshal(embeddings[i])
			if err != nil {
				return err
			}
			if err := embs.Put(itob(i), vec); err != nil {
				return err
			}
		}

		return writeSchemaInfo(meta, len(documents), dimensionOf(embeddings))
	})
}

// Load reads a sidecar file, upgrading the legacy schema when found.
// A missing file is reported via os.IsNotExist on the returned error;
// first-run callers treat that as an empty store, not a failure.
func Load(path string) (*Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer db.Close()

	var snap *Snapshot
	err = db.View(func(tx *bbolt.Tx) error {
		version := detectSchema(tx)
		switch version {
		case schemaVersionCurrent:
			snap, err = loadCurrent(tx)
			return err
		case schemaVersionLegacy:
			snap, err = loadLegacy(tx)
			return err
		default:
			return fmt.Errorf("unsupported sidecar schema in %s", path)
		}
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func loadCurrent(tx *bbolt.Tx) (*Snapshot, error) {
	snap := &Snapshot{}

	docs := tx.Bucket(bucketDocuments)
	if docs == nil {
		return snap, nil
	}
	err := docs.ForEach(func(k, v []byte) error {
		var sc storedChunk
		if err := json.Unmarshal(v, &sc); err != nil {
			return fmt.Errorf("decode document %d: %w", btoi(k), err)
		}
		snap.Documents = append(snap.Documents, domain.Chunk{Text: sc.Text, Metadata: sc.Metadata})
		return nil
	})
	if err != nil {
		return nil, err
	}

	embs := tx.Bucket(bucketEmbeddings)
	if embs != nil {
		err = embs.ForEach(func(k, v []byte) error {
			var vec []float32
			if err := json.Unmarshal(v, &vec); err != nil {
				return fmt.Errorf("decode embedding %d: %w", btoi(k), err)
			}
			snap.Embeddings = append(snap.Embeddings, vec)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// An embedding row for every document, or the matrix is unusable
	// and must be recomputed the same way a legacy sidecar is.
	if len(snap.Embeddings) != len(snap.Documents) {
		snap.Embeddings = nil
		snap.Legacy = true
	}
	return snap, nil
}

func itob(i int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func btoi(b []byte) int {
	if len(b) != 8 {
		return -1
	}
	return int(binary.BigEndian.Uint64(b))
}

func dimensionOf(embeddings [][]float32) int {
	if len(embeddings) == 0 {
		return 0
	}
	return len(embeddings[0])
}
