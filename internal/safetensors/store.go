package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// Store is an opened safetensors payload. Tensors are decoded on demand.
type Store struct {
	raw      []byte
	entries  map[string]storeEntry
	names    []string
	metadata map[string]string
}

type storeEntry struct {
	DType DType
	Shape []int64
	Start int
	End   int
}

type storeHeaderEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

// OpenStore reads and indexes the file at path.
func OpenStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: read %s: %w", path, err)
	}

	return OpenStoreFromBytes(data)
}

// OpenStoreFromBytes indexes an in-memory payload.
func OpenStoreFromBytes(data []byte) (*Store, error) {
	headerEnd, header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(header))
	for name := range header {
		keys = append(keys, name)
	}

	sort.Strings(keys)

	s := &Store{
		raw:     data,
		entries: make(map[string]storeEntry, len(keys)),
		names:   make([]string, 0, len(keys)),
	}

	for _, name := range keys {
		if name == metadataKey {
			if err := json.Unmarshal(header[name], &s.metadata); err != nil {
				return nil, fmt.Errorf("safetensors: decode metadata: %w", err)
			}

			continue
		}

		var entry storeHeaderEntry
		if err := json.Unmarshal(header[name], &entry); err != nil {
			return nil, fmt.Errorf("safetensors: decode header entry %q: %w", name, err)
		}

		parsed, err := validateHeaderEntry(name, entry, headerEnd, len(data))
		if err != nil {
			return nil, err
		}

		s.entries[name] = parsed
		s.names = append(s.names, name)
	}

	if len(s.entries) == 0 {
		return nil, errors.New("safetensors: no tensors found")
	}

	return s, nil
}

// Names returns the tensor names in sorted order.
func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether the store holds a tensor called name.
func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Metadata returns a copy of the __metadata__ entry, or nil.
func (s *Store) Metadata() map[string]string {
	if s.metadata == nil {
		return nil
	}

	out := make(map[string]string, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}

	return out
}

// Tensor decodes the named tensor to float32.
func (s *Store) Tensor(name string) (*Tensor, error) {
	entry, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("safetensors: tensor %q not found (available: %s)", name, summarizeNames(s.names))
	}

	data, err := decodeTensorData(s.raw[entry.Start:entry.End], entry.DType, entry.Shape)
	if err != nil {
		return nil, fmt.Errorf("safetensors: tensor %q decode: %w", name, err)
	}

	return &Tensor{
		Name:  name,
		DType: entry.DType,
		Shape: append([]int64(nil), entry.Shape...),
		Data:  data,
	}, nil
}

// TensorWithShape is Tensor plus a shape check.
func (s *Store) TensorWithShape(name string, wantShape []int64) (*Tensor, error) {
	t, err := s.Tensor(name)
	if err != nil {
		return nil, err
	}

	if !equalShape(t.Shape, wantShape) {
		return nil, fmt.Errorf("safetensors: tensor %q shape %v does not match expected %v", name, t.Shape, wantShape)
	}

	return t, nil
}

func (s *Store) Close() {
	s.raw = nil
	s.entries = nil
	s.names = nil
	s.metadata = nil
}

func decodeHeader(data []byte) (int, map[string]json.RawMessage, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("safetensors: file too short (%d bytes)", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return 0, nil, fmt.Errorf("safetensors: header length %d exceeds file size %d", headerLen, len(data))
	}

	headerEnd := 8 + int(headerLen)

	var header map[string]json.RawMessage

	err := json.Unmarshal(data[8:headerEnd], &header)
	if err != nil {
		return 0, nil, fmt.Errorf("safetensors: parse header: %w", err)
	}

	return headerEnd, header, nil
}

func validateHeaderEntry(name string, entry storeHeaderEntry, headerEnd, fileSize int) (storeEntry, error) {
	dtype, err := ParseDType(entry.DType)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	if entry.Offsets[0] < 0 || entry.Offsets[1] < entry.Offsets[0] {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q has invalid data offsets %v", name, entry.Offsets)
	}

	start := headerEnd + entry.Offsets[0]
	end := headerEnd + entry.Offsets[1]

	if start < headerEnd || end < start {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q data offsets %v overflow", name, entry.Offsets)
	}

	if end > fileSize {
		return storeEntry{}, fmt.Errorf(
			"safetensors: tensor %q data [%d:%d] exceeds file size %d",
			name,
			start,
			end,
			fileSize,
		)
	}

	elemCount, err := shapeElementCount(entry.Shape)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	size, _ := dtype.Size()
	if need := int(elemCount) * size; end-start < need {
		return storeEntry{}, fmt.Errorf(
			"safetensors: tensor %q needs %d bytes but data has %d",
			name,
			need,
			end-start,
		)
	}

	return storeEntry{
		DType: dtype,
		Shape: append([]int64(nil), entry.Shape...),
		Start: start,
		End:   end,
	}, nil
}

func shapeElementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt64/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}

func decodeTensorData(raw []byte, dtype DType, shape []int64) ([]float32, error) {
	elemCount, err := shapeElementCount(shape)
	if err != nil {
		return nil, err
	}

	n := int(elemCount)

	switch dtype {
	case F32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}

		return out, nil
	case F16:
		out := make([]float32, n)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:])).Float32()
		}

		return out, nil
	case BF16:
		return bfloat16.DecodeFloat32(raw[:n*2]), nil
	default:
		return nil, fmt.Errorf("unsupported dtype %q", string(dtype))
	}
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func summarizeNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}

	const maxNames = 8
	if len(names) <= maxNames {
		return strings.Join(names, ", ")
	}

	return strings.Join(names[:maxNames], ", ") + ", ..."
}
