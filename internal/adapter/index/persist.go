package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"smartkb/internal/domain"
)

// On-disk layout: magic, format version, dimension, vector count,
// then count*dimension little-endian float32 values.
var indexMagic = [4]byte{'S', 'K', 'B', 'I'}

const indexFormatVersion uint32 = 1

// WriteFile serializes the index to path.
func (f *Flat) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := w.Write(indexMagic[:]); err != nil {
		return err
	}
	header := []uint32{indexFormatVersion, uint32(f.dimension), uint32(len(f.vectors))}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	buf := make([]byte, 4)
	for _, vec := range f.vectors {
		for _, val := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(val))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadFile loads a persisted index. Unreadable bytes, a bad magic, or
// a dimension other than expectDim all surface ErrIndexCorrupt so the
// caller can fall back to rebuilding from the embedding matrix.
func ReadFile(path string, expectDim int) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: short header", domain.ErrIndexCorrupt)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("%w: bad magic", domain.ErrIndexCorrupt)
	}

	var version, dim, count uint32
	for _, dst := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("%w: short header", domain.ErrIndexCorrupt)
		}
	}
	if version != indexFormatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", domain.ErrIndexCorrupt, version)
	}
	if expectDim > 0 && int(dim) != expectDim {
		return nil, fmt.Errorf("%w: dimension %d, expected %d", domain.ErrIndexCorrupt, dim, expectDim)
	}

	// The count header is untrusted until it matches the payload on
	// disk; otherwise a corrupted value drives a huge allocation below.
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	const headerSize = 4 + 3*4
	if payload := int64(count) * int64(dim) * 4; info.Size() != headerSize+payload {
		return nil, fmt.Errorf("%w: count %d does not match file size", domain.ErrIndexCorrupt, count)
	}

	idx := NewFlat(int(dim))
	idx.vectors = make([][]float32, 0, count)
	buf := make([]byte, 4)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		for j := range vec {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("%w: truncated vector data", domain.ErrIndexCorrupt)
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		}
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}
