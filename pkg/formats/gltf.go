// Package formats provides parsers for the 3D scene file formats consumed
// by the wrap previewer. glTF 2.0 (JSON and GLB container) is the one
// importable format.
package formats

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// glTF format errors.
var (
	ErrInvalidGLBMagic        = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedGLTFVersion = errors.New("unsupported glTF version")
	ErrTruncatedGLTFData      = errors.New("truncated glTF data")
	ErrMissingJSONChunk       = errors.New("GLB container has no JSON chunk")
	ErrBadAccessor            = errors.New("accessor out of range or malformed")
	ErrBufferNotFound         = errors.New("buffer could not be resolved")
)

// GLB container constants.
const (
	glbMagic     = 0x46546C67 // "glTF" little-endian
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"
)

// Accessor component types.
const (
	ComponentByte          = 5120
	ComponentUnsignedByte  = 5121
	ComponentShort         = 5122
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// GLTF is the root of a parsed glTF 2.0 document. Only the schema subset
// the wrap pipeline reads is represented.
type GLTF struct {
	Asset       GLTFAsset        `json:"asset"`
	Scene       *int             `json:"scene,omitempty"`
	Scenes      []GLTFScene      `json:"scenes,omitempty"`
	Nodes       []GLTFNode       `json:"nodes,omitempty"`
	Meshes      []GLTFMesh       `json:"meshes,omitempty"`
	Accessors   []GLTFAccessor   `json:"accessors,omitempty"`
	BufferViews []GLTFBufferView `json:"bufferViews,omitempty"`
	Buffers     []GLTFBuffer     `json:"buffers,omitempty"`
	Materials   []GLTFMaterial   `json:"materials,omitempty"`
	Textures    []GLTFTexture    `json:"textures,omitempty"`
	Images      []GLTFImage      `json:"images,omitempty"`
	Samplers    []GLTFSampler    `json:"samplers,omitempty"`
}

// GLTFAsset holds document metadata. Version is a required glTF field.
type GLTFAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// GLTFScene is a list of root node indices.
type GLTFScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// GLTFNode is one entry in the transform hierarchy.
type GLTFNode struct {
	Name        string     `json:"name,omitempty"`
	Children    []int      `json:"children,omitempty"`
	Mesh        *int       `json:"mesh,omitempty"`
	Matrix      []float32  `json:"matrix,omitempty"`
	Translation []float32  `json:"translation,omitempty"`
	Rotation    []float32  `json:"rotation,omitempty"`
	Scale       []float32  `json:"scale,omitempty"`
}

// GLTFMesh groups one or more primitives.
type GLTFMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []GLTFPrimitive `json:"primitives"`
}

// GLTFPrimitive is one drawable: attribute accessors plus optional
// indices and material.
type GLTFPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

// GLTFAccessor describes how to read typed data out of a buffer view.
type GLTFAccessor struct {
	BufferView    *int   `json:"bufferView,omitempty"`
	ByteOffset    int    `json:"byteOffset,omitempty"`
	ComponentType int    `json:"componentType"`
	Normalized    bool   `json:"normalized,omitempty"`
	Count         int    `json:"count"`
	Type          string `json:"type"`
}

// GLTFBufferView is a byte range of a buffer.
type GLTFBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
}

// GLTFBuffer references raw binary data, by URI or (GLB) implicitly.
type GLTFBuffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// GLTFMaterial holds the authored material parameters the classifier and
// binder read.
type GLTFMaterial struct {
	Name                 string    `json:"name,omitempty"`
	PBRMetallicRoughness *GLTFPBR  `json:"pbrMetallicRoughness,omitempty"`
	AlphaMode            string    `json:"alphaMode,omitempty"` // OPAQUE, MASK, BLEND
	AlphaCutoff          *float32  `json:"alphaCutoff,omitempty"`
	DoubleSided          bool      `json:"doubleSided,omitempty"`
	EmissiveFactor       []float32 `json:"emissiveFactor,omitempty"`
}

// GLTFPBR is the metallic-roughness parameter block.
type GLTFPBR struct {
	BaseColorFactor  []float32       `json:"baseColorFactor,omitempty"`
	BaseColorTexture *GLTFTextureRef `json:"baseColorTexture,omitempty"`
	MetallicFactor   *float32        `json:"metallicFactor,omitempty"`
	RoughnessFactor  *float32        `json:"roughnessFactor,omitempty"`
}

// GLTFTextureRef points a material slot at a texture.
type GLTFTextureRef struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

// GLTFTexture pairs an image with a sampler.
type GLTFTexture struct {
	Sampler *int `json:"sampler,omitempty"`
	Source  *int `json:"source,omitempty"`
}

// GLTFImage is an image payload, by URI or buffer view.
type GLTFImage struct {
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// GLTFSampler holds texture sampling parameters.
type GLTFSampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

// ParseGLTF parses a glTF 2.0 JSON document.
func ParseGLTF(data []byte) (*GLTF, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedGLTFData
	}

	var doc GLTF
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("glTF JSON: %w", err)
	}

	if err := checkVersion(doc.Asset.Version); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseGLB parses a binary glTF container. Returns the document and the
// embedded BIN chunk (nil when absent).
func ParseGLB(data []byte) (*GLTF, []byte, error) {
	if len(data) < 12 {
		return nil, nil, ErrTruncatedGLTFData
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != glbMagic {
		return nil, nil, ErrInvalidGLBMagic
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != 2 {
		return nil, nil, fmt.Errorf("%w: GLB container version %d", ErrUnsupportedGLTFVersion, version)
	}
	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) > len(data) {
		return nil, nil, ErrTruncatedGLTFData
	}

	var jsonChunk, binChunk []byte
	offset := 12
	for offset+8 <= int(total) {
		chunkLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8
		if offset+chunkLen > int(total) {
			return nil, nil, ErrTruncatedGLTFData
		}
		switch chunkType {
		case glbChunkJSON:
			jsonChunk = data[offset : offset+chunkLen]
		case glbChunkBIN:
			binChunk = data[offset : offset+chunkLen]
		}
		// Chunks are 4-byte aligned
		offset += (chunkLen + 3) &^ 3
	}

	if jsonChunk == nil {
		return nil, nil, ErrMissingJSONChunk
	}

	doc, err := ParseGLTF(jsonChunk)
	if err != nil {
		return nil, nil, err
	}
	return doc, binChunk, nil
}

// IsGLB reports whether the data starts with the binary container magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[0:4]) == glbMagic
}

// checkVersion gates on the major version; 2.x documents are accepted.
func checkVersion(version string) error {
	major, _, ok := strings.Cut(version, ".")
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedGLTFVersion, version)
	}
	n, err := strconv.Atoi(major)
	if err != nil || n != 2 {
		return fmt.Errorf("%w: %q", ErrUnsupportedGLTFVersion, version)
	}
	return nil
}

// MaterialName returns the name of material i, or "" when the index is
// out of range or the material is unnamed.
func (doc *GLTF) MaterialName(i int) string {
	if i < 0 || i >= len(doc.Materials) {
		return ""
	}
	return doc.Materials[i].Name
}

// RootNodes returns the node indices of the default scene, falling back
// to the first scene, then to every node without a parent.
func (doc *GLTF) RootNodes() []int {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}

	// No scene: treat nodes that are nobody's child as roots.
	child := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}
