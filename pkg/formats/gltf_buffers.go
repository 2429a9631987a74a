package formats

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// ResolveFunc fetches an external buffer payload by its (relative) URI.
// The scene loader supplies this so sibling .bin files resolve against
// the scene file's base directory through whichever fetch path is active.
type ResolveFunc func(uri string) ([]byte, error)

// BufferSource resolves glTF buffer indices to raw bytes.
type BufferSource interface {
	Buffer(index int) ([]byte, error)
}

type bufferSource struct {
	doc     *GLTF
	bin     []byte // GLB-embedded chunk, buffer 0 with no URI
	resolve ResolveFunc
	cache   map[int][]byte
}

// NewBufferSource creates a BufferSource for doc. bin is the GLB binary
// chunk (nil for .gltf files); resolve handles external URIs and may be
// nil when all buffers are embedded.
func NewBufferSource(doc *GLTF, bin []byte, resolve ResolveFunc) BufferSource {
	return &bufferSource{
		doc:     doc,
		bin:     bin,
		resolve: resolve,
		cache:   make(map[int][]byte),
	}
}

func (s *bufferSource) Buffer(index int) ([]byte, error) {
	if index < 0 || index >= len(s.doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer index %d", ErrBufferNotFound, index)
	}
	if data, ok := s.cache[index]; ok {
		return data, nil
	}

	buf := s.doc.Buffers[index]
	var data []byte
	var err error

	switch {
	case buf.URI == "":
		// GLB binary chunk
		if s.bin == nil {
			return nil, fmt.Errorf("%w: buffer %d has no URI and no GLB chunk is present", ErrBufferNotFound, index)
		}
		data = s.bin
	case strings.HasPrefix(buf.URI, "data:"):
		data, err = decodeDataURI(buf.URI)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", index, err)
		}
	default:
		if s.resolve == nil {
			return nil, fmt.Errorf("%w: buffer %d needs external URI %q but no resolver is set", ErrBufferNotFound, index, buf.URI)
		}
		data, err = s.resolve(buf.URI)
		if err != nil {
			return nil, fmt.Errorf("%w: buffer %d uri %q: %v", ErrBufferNotFound, index, buf.URI, err)
		}
	}

	if buf.ByteLength > len(data) {
		return nil, fmt.Errorf("%w: buffer %d declares %d bytes, payload has %d", ErrTruncatedGLTFData, index, buf.ByteLength, len(data))
	}

	s.cache[index] = data
	return data, nil
}

// decodeDataURI decodes a base64 data: URI payload.
func decodeDataURI(uri string) ([]byte, error) {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI base64: %w", err)
	}
	return data, nil
}

// componentCount maps accessor types to their component counts.
var componentCount = map[string]int{
	"SCALAR": 1,
	"VEC2":   2,
	"VEC3":   3,
	"VEC4":   4,
	"MAT4":   16,
}

// componentSize maps component types to their byte sizes.
var componentSize = map[int]int{
	ComponentByte:          1,
	ComponentUnsignedByte:  1,
	ComponentShort:         2,
	ComponentUnsignedShort: 2,
	ComponentUnsignedInt:   4,
	ComponentFloat:         4,
}

// accessorBytes validates accessor index and returns the backing bytes,
// element stride, and component layout.
func accessorBytes(doc *GLTF, src BufferSource, index int) (data []byte, acc *GLTFAccessor, stride, comps, compSize int, err error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: accessor index %d", ErrBadAccessor, index)
	}
	acc = &doc.Accessors[index]

	comps, ok := componentCount[acc.Type]
	if !ok {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: accessor %d type %q", ErrBadAccessor, index, acc.Type)
	}
	compSize, ok = componentSize[acc.ComponentType]
	if !ok {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: accessor %d componentType %d", ErrBadAccessor, index, acc.ComponentType)
	}

	if acc.BufferView == nil {
		// Sparse-only accessors are not produced by the authoring tools
		// this pipeline consumes.
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: accessor %d has no bufferView", ErrBadAccessor, index)
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: accessor %d bufferView %d", ErrBadAccessor, index, *acc.BufferView)
	}
	view := doc.BufferViews[*acc.BufferView]

	raw, err := src.Buffer(view.Buffer)
	if err != nil {
		return nil, nil, 0, 0, 0, err
	}
	if view.ByteOffset+view.ByteLength > len(raw) {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: bufferView %d exceeds buffer", ErrTruncatedGLTFData, *acc.BufferView)
	}
	viewData := raw[view.ByteOffset : view.ByteOffset+view.ByteLength]

	stride = view.ByteStride
	if stride == 0 {
		stride = comps * compSize
	}

	need := acc.ByteOffset + (acc.Count-1)*stride + comps*compSize
	if acc.Count > 0 && need > len(viewData) {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: accessor %d needs %d bytes, view has %d", ErrTruncatedGLTFData, index, need, len(viewData))
	}

	return viewData[acc.ByteOffset:], acc, stride, comps, compSize, nil
}

// ReadAccessorFloats reads accessor index as a flat []float32, converting
// normalized integer components per the glTF rules.
func ReadAccessorFloats(doc *GLTF, src BufferSource, index int) ([]float32, error) {
	data, acc, stride, comps, compSize, err := accessorBytes(doc, src, index)
	if err != nil {
		return nil, err
	}

	out := make([]float32, 0, acc.Count*comps)
	for i := 0; i < acc.Count; i++ {
		base := i * stride
		for c := 0; c < comps; c++ {
			off := base + c*compSize
			var v float32
			switch acc.ComponentType {
			case ComponentFloat:
				v = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			case ComponentUnsignedShort:
				u := binary.LittleEndian.Uint16(data[off:])
				if acc.Normalized {
					v = float32(u) / 65535.0
				} else {
					v = float32(u)
				}
			case ComponentUnsignedByte:
				u := data[off]
				if acc.Normalized {
					v = float32(u) / 255.0
				} else {
					v = float32(u)
				}
			case ComponentShort:
				u := int16(binary.LittleEndian.Uint16(data[off:]))
				if acc.Normalized {
					v = float32(u) / 32767.0
					if v < -1 {
						v = -1
					}
				} else {
					v = float32(u)
				}
			case ComponentByte:
				u := int8(data[off])
				if acc.Normalized {
					v = float32(u) / 127.0
					if v < -1 {
						v = -1
					}
				} else {
					v = float32(u)
				}
			default:
				return nil, fmt.Errorf("%w: accessor %d componentType %d as float", ErrBadAccessor, index, acc.ComponentType)
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// ReadAccessorIndices reads accessor index as a flat []uint32 index list.
func ReadAccessorIndices(doc *GLTF, src BufferSource, index int) ([]uint32, error) {
	data, acc, stride, comps, _, err := accessorBytes(doc, src, index)
	if err != nil {
		return nil, err
	}
	if comps != 1 {
		return nil, fmt.Errorf("%w: index accessor %d has type %q", ErrBadAccessor, index, acc.Type)
	}

	out := make([]uint32, 0, acc.Count)
	for i := 0; i < acc.Count; i++ {
		off := i * stride
		switch acc.ComponentType {
		case ComponentUnsignedInt:
			out = append(out, binary.LittleEndian.Uint32(data[off:]))
		case ComponentUnsignedShort:
			out = append(out, uint32(binary.LittleEndian.Uint16(data[off:])))
		case ComponentUnsignedByte:
			out = append(out, uint32(data[off]))
		default:
			return nil, fmt.Errorf("%w: index accessor %d componentType %d", ErrBadAccessor, index, acc.ComponentType)
		}
	}
	return out, nil
}

// ImageBytes returns the payload of image i: data URI, buffer view, or
// external URI through resolve.
func ImageBytes(doc *GLTF, src BufferSource, i int, resolve ResolveFunc) ([]byte, error) {
	if i < 0 || i >= len(doc.Images) {
		return nil, fmt.Errorf("%w: image index %d", ErrBadAccessor, i)
	}
	img := doc.Images[i]

	switch {
	case strings.HasPrefix(img.URI, "data:"):
		return decodeDataURI(img.URI)
	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("%w: image %d bufferView %d", ErrBadAccessor, i, *img.BufferView)
		}
		view := doc.BufferViews[*img.BufferView]
		raw, err := src.Buffer(view.Buffer)
		if err != nil {
			return nil, err
		}
		if view.ByteOffset+view.ByteLength > len(raw) {
			return nil, fmt.Errorf("%w: image %d bufferView exceeds buffer", ErrTruncatedGLTFData, i)
		}
		return raw[view.ByteOffset : view.ByteOffset+view.ByteLength], nil
	case img.URI != "":
		if resolve == nil {
			return nil, fmt.Errorf("%w: image %d needs external URI %q", ErrBufferNotFound, i, img.URI)
		}
		return resolve(img.URI)
	}
	return nil, fmt.Errorf("%w: image %d has no payload", ErrBadAccessor, i)
}
