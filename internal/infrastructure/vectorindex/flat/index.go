// Package flat implements an exact L2 vector index kept entirely in memory.
package flat

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/viant/vec/search"

	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

// MissingID pads Search results when fewer than k vectors exist.
const MissingID int64 = -1

const (
	fileMagic   uint32 = 0x58494653 // "SFIX"
	fileVersion uint32 = 1
	headerSize         = 16
)

var errDimension = errors.New("flat: vector dimension mismatch")

type Index struct {
	dim  int
	vecs [][]float32
}

func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: invalid dimension %d", dimension)
	}
	return &Index{dim: dimension}, nil
}

func (i *Index) Dimension() int { return i.dim }

func (i *Index) Len() int { return len(i.vecs) }

// Add appends vectors; the first appended vector gets id Len().
func (i *Index) Add(vectors [][]float32) error {
	for n, vec := range vectors {
		if len(vec) != i.dim {
			return fmt.Errorf("%w: vector %d has %d, index has %d", errDimension, n, len(vec), i.dim)
		}
	}
	for _, vec := range vectors {
		i.vecs = append(i.vecs, slices.Clone(vec))
	}
	return nil
}

// Search returns the k closest ids with their Euclidean distances, closest
// first and ties broken by lower id. Slots beyond Len() hold MissingID.
func (i *Index) Search(query []float32, k int) ([]int64, []float32, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("flat: k must be positive, got %d", k)
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("%w: query has %d, index has %d", errDimension, len(query), i.dim)
	}

	type scored struct {
		id   int64
		dist float32
	}
	scoreds := make([]scored, len(i.vecs))
	q := search.Float32s(query)
	for id, vec := range i.vecs {
		scoreds[id] = scored{id: int64(id), dist: q.EuclideanDistance(vec)}
	}
	slices.SortFunc(scoreds, func(a, b scored) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]int64, k)
	dists := make([]float32, k)
	for n := range k {
		if n < len(scoreds) {
			ids[n] = scoreds[n].id
			dists[n] = scoreds[n].dist
			continue
		}
		ids[n] = MissingID
		dists[n] = math.MaxFloat32
	}
	return ids, dists, nil
}

func (i *Index) Reconstruct(id int64) ([]float32, error) {
	if id < 0 || id >= int64(len(i.vecs)) {
		return nil, fmt.Errorf("flat: id %d out of range [0,%d)", id, len(i.vecs))
	}
	return slices.Clone(i.vecs[id]), nil
}

// MarshalBinary stores magic, version, dim and count as little-endian uint32
// followed by count*dim float32 values.
func (i *Index) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerSize, headerSize+4*i.dim*len(i.vecs))
	binary.LittleEndian.PutUint32(out[0:4], fileMagic)
	binary.LittleEndian.PutUint32(out[4:8], fileVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(i.dim))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(i.vecs)))
	for _, vec := range i.vecs {
		for _, v := range vec {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out, nil
}

func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return errors.New("flat: truncated header")
	}
	if binary.LittleEndian.Uint32(data[0:4]) != fileMagic {
		return errors.New("flat: not an index file")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != fileVersion {
		return fmt.Errorf("flat: unsupported file version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := int(binary.LittleEndian.Uint32(data[12:16]))
	if dim <= 0 {
		return fmt.Errorf("flat: invalid dimension %d", dim)
	}
	if want := headerSize + 4*dim*n; len(data) != want {
		return fmt.Errorf("flat: expected %d bytes, got %d", want, len(data))
	}

	vecs := make([][]float32, n)
	off := headerSize
	for idx := range vecs {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vecs[idx] = vec
	}
	i.dim = dim
	i.vecs = vecs
	return nil
}

// Persist writes the index beside path and renames it over path.
func (i *Index) Persist(path string) error {
	data, err := i.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("flat: create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("flat: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("flat: replace %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flat: read %s: %w", path, err)
	}
	idx := &Index{}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("flat: decode %s: %w", path, err)
	}
	return idx, nil
}

// Factory builds and loads flat indexes for the retriever.
type Factory struct{}

func (Factory) NewIndex(dimension int) (ports.VectorIndex, error) {
	return New(dimension)
}

func (Factory) LoadIndex(path string) (ports.VectorIndex, error) {
	return Load(path)
}
