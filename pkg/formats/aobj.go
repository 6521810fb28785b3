package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
)

// AOBJ format errors.
var (
	ErrTruncatedAOBJData   = errors.New("truncated AOBJ data")
	ErrUnsupportedAOBJType = errors.New("unsupported AOBJ object type")
	ErrInvalidAOBJLength   = errors.New("invalid AOBJ buffer length")
	ErrInvalidAOBJIndex    = errors.New("AOBJ index out of vertex range")
	ErrAOBJTooLarge        = errors.New("AOBJ buffers exceed 4 GiB")
)

// AOBJTypeMesh is the only object type tag currently defined.
const AOBJTypeMesh uint8 = 1

// Serialized sizes. These are fixed by the format, not by the platform.
var (
	aobjHeaderSize = binary.Size(aobjHeader{})
	AOBJVertexSize = binary.Size(AOBJVertex{})
	AOBJIndexSize  = binary.Size(uint32(0))
)

// aobjHeader is the 9-byte container header (no padding on disk).
type aobjHeader struct {
	Type        uint8
	VertexBytes uint32
	IndexBytes  uint32
}

// AOBJVertex is one interleaved vertex: position, texture coordinate, normal.
type AOBJVertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
	Normal   mgl32.Vec3
}

// AOBJ is a vertex buffer and a triangle index buffer ready for GPU upload.
type AOBJ struct {
	Type     uint8
	Vertices []AOBJVertex
	Indices  []uint32
}

// VertexBytes returns the serialized size of the vertex buffer.
func (a *AOBJ) VertexBytes() uint64 {
	return uint64(len(a.Vertices)) * uint64(AOBJVertexSize)
}

// IndexBytes returns the serialized size of the index buffer.
func (a *AOBJ) IndexBytes() uint64 {
	return uint64(len(a.Indices)) * uint64(AOBJIndexSize)
}

// TriangleCount returns the number of triangles in the index buffer.
func (a *AOBJ) TriangleCount() int {
	return len(a.Indices) / 3
}

// Encode writes the container to w.
func (a *AOBJ) Encode(w io.Writer) error {
	vertexBytes, indexBytes := a.VertexBytes(), a.IndexBytes()
	if vertexBytes > math.MaxUint32 || indexBytes > math.MaxUint32 {
		return fmt.Errorf("%w: %d vertex bytes, %d index bytes", ErrAOBJTooLarge, vertexBytes, indexBytes)
	}
	if err := a.validateIndices(); err != nil {
		return err
	}

	header := aobjHeader{
		Type:        a.Type,
		VertexBytes: uint32(vertexBytes),
		IndexBytes:  uint32(indexBytes),
	}
	if header.Type == 0 {
		header.Type = AOBJTypeMesh
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, a.Vertices); err != nil {
		return fmt.Errorf("writing vertex data: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, a.Indices); err != nil {
		return fmt.Errorf("writing index data: %w", err)
	}
	return bw.Flush()
}

// Bytes returns the encoded container.
func (a *AOBJ) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(aobjHeaderSize + int(a.VertexBytes()+a.IndexBytes()))
	if err := a.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the container and replaces path with it. The data goes
// to a temporary file in the same directory first, so path either keeps its
// previous content or holds a complete container.
func (a *AOBJ) WriteFile(path string) error {
	data, err := a.Bytes()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions on %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (a *AOBJ) validateIndices() error {
	for i, idx := range a.Indices {
		if int(idx) >= len(a.Vertices) {
			return fmt.Errorf("%w: index %d is %d, vertex count %d", ErrInvalidAOBJIndex, i, idx, len(a.Vertices))
		}
	}
	return nil
}

// ParseAOBJ parses a container from raw bytes.
func ParseAOBJ(data []byte) (*AOBJ, error) {
	if len(data) < aobjHeaderSize {
		return nil, ErrTruncatedAOBJData
	}

	r := bytes.NewReader(data)

	var header aobjHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedAOBJData)
	}

	if header.Type != AOBJTypeMesh {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAOBJType, header.Type)
	}

	if header.VertexBytes%uint32(AOBJVertexSize) != 0 {
		return nil, fmt.Errorf("%w: vertex data is %d bytes, not a multiple of %d",
			ErrInvalidAOBJLength, header.VertexBytes, AOBJVertexSize)
	}
	if header.IndexBytes%uint32(AOBJIndexSize) != 0 {
		return nil, fmt.Errorf("%w: index data is %d bytes, not a multiple of %d",
			ErrInvalidAOBJLength, header.IndexBytes, AOBJIndexSize)
	}

	want := uint64(aobjHeaderSize) + uint64(header.VertexBytes) + uint64(header.IndexBytes)
	if uint64(len(data)) < want {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrTruncatedAOBJData, want, len(data))
	}
	if uint64(len(data)) > want {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidAOBJLength, uint64(len(data))-want)
	}

	aobj := &AOBJ{
		Type:     header.Type,
		Vertices: make([]AOBJVertex, header.VertexBytes/uint32(AOBJVertexSize)),
		Indices:  make([]uint32, header.IndexBytes/uint32(AOBJIndexSize)),
	}

	if err := binary.Read(r, binary.LittleEndian, aobj.Vertices); err != nil {
		return nil, fmt.Errorf("%w: reading vertex data", ErrTruncatedAOBJData)
	}
	if err := binary.Read(r, binary.LittleEndian, aobj.Indices); err != nil {
		return nil, fmt.Errorf("%w: reading index data", ErrTruncatedAOBJData)
	}

	if err := aobj.validateIndices(); err != nil {
		return nil, err
	}

	return aobj, nil
}

// ParseAOBJFile parses a container from disk.
func ParseAOBJFile(path string) (*AOBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading AOBJ file: %w", err)
	}
	return ParseAOBJ(data)
}
