// Package model assembles indexed triangle meshes from parsed OBJ data.
package model

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshbuilder/pkg/formats"
)

// Vertex is an interleaved vertex record with position, texture coordinate and normal.
// Field order matches the on-disk layout.
type Vertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
	Normal   mgl32.Vec3
}

// CornerKey identifies a face corner by its resolved 0-based
// position, texcoord and normal indices.
type CornerKey [3]int

// Mesh holds the complete mesh data ready for GPU upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// Bounds holds the axis-aligned bounding box of the vertex positions.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the half-size of the box along each axis.
func (b Bounds) Extent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// extend grows the box to include p.
func (b *Bounds) extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ReusedCorners returns how many corners were served by an existing vertex.
func (m *Mesh) ReusedCorners() int {
	return len(m.Indices) - len(m.Vertices)
}

// AOBJ converts the mesh to its binary container form.
func (m *Mesh) AOBJ() *formats.AOBJ {
	vertices := make([]formats.AOBJVertex, len(m.Vertices))
	for i, v := range m.Vertices {
		vertices[i] = formats.AOBJVertex(v)
	}
	return &formats.AOBJ{
		Type:     formats.AOBJTypeMesh,
		Vertices: vertices,
		Indices:  m.Indices,
	}
}

// FromAOBJ rebuilds a mesh from a decoded container, recomputing its bounds.
func FromAOBJ(a *formats.AOBJ) *Mesh {
	m := &Mesh{
		Vertices: make([]Vertex, len(a.Vertices)),
		Indices:  a.Indices,
	}
	for i, v := range a.Vertices {
		m.Vertices[i] = Vertex(v)
		if i == 0 {
			m.Bounds = Bounds{Min: v.Position, Max: v.Position}
			continue
		}
		m.Bounds.extend(v.Position)
	}
	return m
}
