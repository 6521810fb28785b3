// Package formats provides readers and writers for mesh file formats.
//
// OBJ (Wavefront text meshes) is parsed in obj.go. AOBJ, the binary
// vertex/index container produced by meshbuilder, is encoded and decoded
// in aobj.go.
package formats
