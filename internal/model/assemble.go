package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Faultbox/meshbuilder/pkg/formats"
)

// Assembly errors.
var (
	ErrUnsupportedFaceShape     = errors.New("unsupported face shape")
	ErrMalformedFaceCorner      = errors.New("malformed face corner")
	ErrAttributeIndexOutOfRange = errors.New("attribute index out of range")
	ErrIndexOverflow            = errors.New("vertex count exceeds 32-bit index range")
)

// attribute names in corner order p/t/n.
var cornerAttribs = [3]string{"position", "texcoord", "normal"}

// Assemble builds an indexed mesh from parsed OBJ data.
//
// Every distinct corner (position, texcoord, normal) gets exactly one vertex,
// in order of first appearance across the whole file. Any malformed face
// aborts assembly and no mesh is returned.
func Assemble(obj *formats.OBJ) (*Mesh, error) {
	a := &assembler{
		obj:   obj,
		slots: make(map[CornerKey]uint32, len(obj.Faces)),
		mesh: &Mesh{
			Indices: make([]uint32, 0, 3*len(obj.Faces)),
		},
	}

	for i := range obj.Faces {
		if err := a.addFace(&obj.Faces[i]); err != nil {
			return nil, err
		}
	}

	return a.mesh, nil
}

// assembler holds the per-file state of one conversion.
type assembler struct {
	obj   *formats.OBJ
	slots map[CornerKey]uint32
	mesh  *Mesh
}

func (a *assembler) addFace(face *formats.OBJFace) error {
	if len(face.Corners) != 3 {
		return fmt.Errorf("line %d: %w: face has %d corners, only triangles are supported",
			face.Line, ErrUnsupportedFaceShape, len(face.Corners))
	}

	// Resolve all corners before touching the buffers
	var keys [3]CornerKey
	for i, token := range face.Corners {
		key, err := a.resolveCorner(face, token)
		if err != nil {
			return fmt.Errorf("line %d: %w", face.Line, err)
		}
		keys[i] = key
	}

	for _, key := range keys {
		slot, ok := a.slots[key]
		if !ok {
			var err error
			if slot, err = a.appendVertex(key); err != nil {
				return fmt.Errorf("line %d: %w", face.Line, err)
			}
			a.slots[key] = slot
		}
		a.mesh.Indices = append(a.mesh.Indices, slot)
	}

	return nil
}

func (a *assembler) appendVertex(key CornerKey) (uint32, error) {
	n := len(a.mesh.Vertices)
	if uint64(n) > math.MaxUint32 {
		return 0, ErrIndexOverflow
	}

	v := Vertex{
		Position: a.obj.Positions[key[0]],
		TexCoord: a.obj.TexCoords[key[1]],
		Normal:   a.obj.Normals[key[2]],
	}
	if n == 0 {
		a.mesh.Bounds = Bounds{Min: v.Position, Max: v.Position}
	} else {
		a.mesh.Bounds.extend(v.Position)
	}

	a.mesh.Vertices = append(a.mesh.Vertices, v)
	return uint32(n), nil
}

// resolveCorner parses a "p/t/n" token into 0-based indices.
func (a *assembler) resolveCorner(face *formats.OBJFace, token string) (CornerKey, error) {
	parts := strings.Split(token, "/")
	if len(parts) != 3 {
		return CornerKey{}, fmt.Errorf("%w: %q is not of the form p/t/n", ErrMalformedFaceCorner, token)
	}

	lengths := [3]int{len(a.obj.Positions), len(a.obj.TexCoords), len(a.obj.Normals)}
	definedBefore := [3]int{face.PositionCount, face.TexCoordCount, face.NormalCount}

	var key CornerKey
	for i, part := range parts {
		if part == "" {
			return CornerKey{}, fmt.Errorf("%w: %q has no %s index", ErrMalformedFaceCorner, token, cornerAttribs[i])
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return CornerKey{}, fmt.Errorf("%w: %q has non-integer %s index %q", ErrMalformedFaceCorner, token, cornerAttribs[i], part)
		}

		idx, err := resolveIndex(n, definedBefore[i], lengths[i])
		if err != nil {
			return CornerKey{}, fmt.Errorf("%w: %s index %d in %q", err, cornerAttribs[i], n, token)
		}
		key[i] = idx
	}

	return key, nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index to a
// 0-based one. Relative indices count back from the attributes defined
// before the face line.
func resolveIndex(n, definedBefore, length int) (int, error) {
	var idx int
	switch {
	case n > 0:
		idx = n - 1
	case n < 0:
		idx = definedBefore + n
	default:
		return 0, fmt.Errorf("%w (indices start at 1)", ErrAttributeIndexOutOfRange)
	}

	if idx < 0 || idx >= length {
		return 0, fmt.Errorf("%w (have %d)", ErrAttributeIndexOutOfRange, length)
	}
	return idx, nil
}
