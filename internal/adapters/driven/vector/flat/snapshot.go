package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Snapshot format: magic, format version, consistency version tag,
// dimension, live entry count, then per entry an int64 id followed by
// the little-endian float32 vector. Only live entries are written, so
// a restored index answers Search identically to the one that
// produced the snapshot.
const (
	snapshotMagic   = "LMVX"
	snapshotVersion = uint32(1)
)

// Save persists a snapshot tagged with the given consistency version.
// The file is written to a temp path and renamed so a crash mid-write
// never leaves a truncated snapshot behind.
func (idx *Index) Save(path string, version uint64) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return errors.New("flat: index is closed")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if err := idx.writeLocked(f, version); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load restores a snapshot, replacing the index contents, and returns
// the consistency version the snapshot was tagged with.
func (idx *Index) Load(path string) (uint64, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, fmt.Errorf("read snapshot header: %w", err)
	}
	if string(magic) != snapshotMagic {
		return 0, errors.New("flat: not a vector index snapshot")
	}

	var format uint32
	if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
		return 0, fmt.Errorf("read snapshot format: %w", err)
	}
	if format != snapshotVersion {
		return 0, fmt.Errorf("flat: unsupported snapshot format %d", format)
	}

	var version uint64
	var dimension uint32
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, fmt.Errorf("read consistency version: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &dimension); err != nil {
		return 0, fmt.Errorf("read dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, fmt.Errorf("read entry count: %w", err)
	}

	ids := make([]int64, 0, count)
	vectors := make([][]float32, 0, count)
	buf := make([]byte, int(dimension)*4)

	for i := uint32(0); i < count; i++ {
		var id int64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return 0, fmt.Errorf("read entry %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, fmt.Errorf("read vector %d: %w", i, err)
		}
		vec := make([]float32, dimension)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return 0, errors.New("flat: index is closed")
	}

	idx.dimension = int(dimension)
	idx.ids = ids
	idx.vectors = vectors
	idx.dead = make(map[int64]struct{})

	return version, nil
}

// writeLocked serialises the live entries. Callers must hold at least
// a read lock.
func (idx *Index) writeLocked(f *os.File, version uint64) error {
	w := bufio.NewWriter(f)

	if _, err := w.WriteString(snapshotMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotVersion); err != nil {
		return fmt.Errorf("write format: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, version); err != nil {
		return fmt.Errorf("write consistency version: %w", err)
	}

	live := 0
	for _, id := range idx.ids {
		if _, gone := idx.dead[id]; !gone {
			live++
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(idx.dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(live)); err != nil {
		return fmt.Errorf("write entry count: %w", err)
	}

	buf := make([]byte, idx.dimension*4)
	for i, id := range idx.ids {
		if _, gone := idx.dead[id]; gone {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, id); err != nil {
			return fmt.Errorf("write entry id: %w", err)
		}
		for j, v := range idx.vectors[i] {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}

	return w.Flush()
}
