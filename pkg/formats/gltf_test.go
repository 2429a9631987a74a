package formats

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// makeGLB assembles a GLB container from a JSON body and optional BIN chunk.
func makeGLB(jsonBody []byte, bin []byte) []byte {
	pad4 := func(b []byte, fill byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, fill)
		}
		return b
	}
	jsonBody = pad4(jsonBody, ' ')

	var chunks []byte
	chunks = appendChunk(chunks, glbChunkJSON, jsonBody)
	if bin != nil {
		chunks = appendChunk(chunks, glbChunkBIN, pad4(bin, 0))
	}

	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], glbMagic)
	binary.LittleEndian.PutUint32(header[4:8], 2)
	binary.LittleEndian.PutUint32(header[8:12], uint32(12+len(chunks)))
	return append(header, chunks...)
}

func appendChunk(dst []byte, chunkType uint32, body []byte) []byte {
	hdr := make([]byte, 8)
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(hdr[4:8], chunkType)
	dst = append(dst, hdr...)
	return append(dst, body...)
}

func floatsToBytes(vals []float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestParseGLTF_VersionGate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"v2.0", `{"asset":{"version":"2.0"}}`, nil},
		{"v2.1", `{"asset":{"version":"2.1"}}`, nil},
		{"v1.0", `{"asset":{"version":"1.0"}}`, ErrUnsupportedGLTFVersion},
		{"missing version", `{"asset":{}}`, ErrUnsupportedGLTFVersion},
		{"garbage version", `{"asset":{"version":"x.y"}}`, ErrUnsupportedGLTFVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGLTF([]byte(tt.body))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseGLTF_Malformed(t *testing.T) {
	if _, err := ParseGLTF(nil); !errors.Is(err, ErrTruncatedGLTFData) {
		t.Errorf("empty input: got %v, want ErrTruncatedGLTFData", err)
	}
	if _, err := ParseGLTF([]byte(`{"asset":`)); err == nil {
		t.Error("truncated JSON: expected error, got nil")
	}
}

func TestParseGLB_Container(t *testing.T) {
	valid := makeGLB([]byte(`{"asset":{"version":"2.0"}}`), []byte{1, 2, 3, 4})

	badMagic := append([]byte{}, valid...)
	badMagic[0] = 'X'

	badVersion := append([]byte{}, valid...)
	binary.LittleEndian.PutUint32(badVersion[4:8], 3)

	headerOnly := make([]byte, 12)
	binary.LittleEndian.PutUint32(headerOnly[0:4], glbMagic)
	binary.LittleEndian.PutUint32(headerOnly[4:8], 2)
	binary.LittleEndian.PutUint32(headerOnly[8:12], 12)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid", valid, nil},
		{"bad magic", badMagic, ErrInvalidGLBMagic},
		{"bad container version", badVersion, ErrUnsupportedGLTFVersion},
		{"truncated header", valid[:8], ErrTruncatedGLTFData},
		{"no chunks", headerOnly, ErrMissingJSONChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, bin, err := ParseGLB(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if doc.Asset.Version != "2.0" {
				t.Errorf("version = %q, want 2.0", doc.Asset.Version)
			}
			if len(bin) < 4 || bin[0] != 1 {
				t.Errorf("BIN chunk = %v, want leading bytes 1 2 3 4", bin)
			}
		})
	}
}

func TestIsGLB(t *testing.T) {
	if !IsGLB(makeGLB([]byte(`{}`), nil)) {
		t.Error("GLB container not detected")
	}
	if IsGLB([]byte(`{"asset":{"version":"2.0"}}`)) {
		t.Error("JSON document misdetected as GLB")
	}
}

// fixtureDoc builds a one-buffer document with a VEC3 position accessor
// and a SCALAR ushort index accessor.
func fixtureDoc(t *testing.T, positions []float32, indices []uint16, embed bool) (*GLTF, BufferSource) {
	t.Helper()

	posBytes := floatsToBytes(positions)
	idxBytes := make([]byte, 2*len(indices))
	for i, v := range indices {
		binary.LittleEndian.PutUint16(idxBytes[i*2:], v)
	}
	payload := append(append([]byte{}, posBytes...), idxBytes...)

	view0, view1 := 0, 1
	doc := &GLTF{
		Asset:   GLTFAsset{Version: "2.0"},
		Buffers: []GLTFBuffer{{ByteLength: len(payload)}},
		BufferViews: []GLTFBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: len(posBytes)},
			{Buffer: 0, ByteOffset: len(posBytes), ByteLength: len(idxBytes)},
		},
		Accessors: []GLTFAccessor{
			{BufferView: &view0, ComponentType: ComponentFloat, Count: len(positions) / 3, Type: "VEC3"},
			{BufferView: &view1, ComponentType: ComponentUnsignedShort, Count: len(indices), Type: "SCALAR"},
		},
	}

	var src BufferSource
	if embed {
		doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(payload)
		src = NewBufferSource(doc, nil, nil)
	} else {
		doc.Buffers[0].URI = "mesh.bin"
		src = NewBufferSource(doc, nil, func(uri string) ([]byte, error) {
			if uri != "mesh.bin" {
				return nil, errors.New("unknown uri")
			}
			return payload, nil
		})
	}
	return doc, src
}

func TestReadAccessors(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	indices := []uint16{0, 1, 2}

	for _, mode := range []struct {
		name  string
		embed bool
	}{
		{"data URI buffer", true},
		{"external buffer via resolver", false},
	} {
		t.Run(mode.name, func(t *testing.T) {
			doc, src := fixtureDoc(t, positions, indices, mode.embed)

			got, err := ReadAccessorFloats(doc, src, 0)
			if err != nil {
				t.Fatalf("ReadAccessorFloats: %v", err)
			}
			if len(got) != len(positions) {
				t.Fatalf("got %d floats, want %d", len(got), len(positions))
			}
			for i := range positions {
				if got[i] != positions[i] {
					t.Errorf("float[%d] = %v, want %v", i, got[i], positions[i])
				}
			}

			idx, err := ReadAccessorIndices(doc, src, 1)
			if err != nil {
				t.Fatalf("ReadAccessorIndices: %v", err)
			}
			want := []uint32{0, 1, 2}
			for i := range want {
				if idx[i] != want[i] {
					t.Errorf("index[%d] = %d, want %d", i, idx[i], want[i])
				}
			}
		})
	}
}

func TestReadAccessor_Errors(t *testing.T) {
	doc, src := fixtureDoc(t, []float32{0, 0, 0}, []uint16{0}, true)

	if _, err := ReadAccessorFloats(doc, src, 99); !errors.Is(err, ErrBadAccessor) {
		t.Errorf("out-of-range accessor: got %v, want ErrBadAccessor", err)
	}

	// Accessor claiming more elements than the view holds.
	doc.Accessors[0].Count = 100
	if _, err := ReadAccessorFloats(doc, src, 0); !errors.Is(err, ErrTruncatedGLTFData) {
		t.Errorf("oversized accessor: got %v, want ErrTruncatedGLTFData", err)
	}
}

func TestBufferSource_MissingResolver(t *testing.T) {
	doc := &GLTF{
		Asset:   GLTFAsset{Version: "2.0"},
		Buffers: []GLTFBuffer{{URI: "mesh.bin", ByteLength: 4}},
	}
	src := NewBufferSource(doc, nil, nil)
	if _, err := src.Buffer(0); !errors.Is(err, ErrBufferNotFound) {
		t.Errorf("got %v, want ErrBufferNotFound", err)
	}
}

func TestRootNodes(t *testing.T) {
	zero := 0
	withScene := &GLTF{
		Scene:  &zero,
		Scenes: []GLTFScene{{Nodes: []int{2}}},
		Nodes:  []GLTFNode{{}, {}, {Children: []int{0, 1}}},
	}
	if got := withScene.RootNodes(); len(got) != 1 || got[0] != 2 {
		t.Errorf("scene roots = %v, want [2]", got)
	}

	noScene := &GLTF{Nodes: []GLTFNode{{Children: []int{1}}, {}}}
	if got := noScene.RootNodes(); len(got) != 1 || got[0] != 0 {
		t.Errorf("orphan roots = %v, want [0]", got)
	}
}
