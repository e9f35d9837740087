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

	"github.com/x448/float16"
)

// EncodeTensors serializes tensors into safetensors format. Each tensor is
// stored in its own DType. metadata, if non-empty, becomes the __metadata__
// header entry.
func EncodeTensors(tensors []Tensor, metadata map[string]string) ([]byte, error) {
	if len(tensors) == 0 {
		return nil, errors.New("safetensors: no tensors to encode")
	}

	sorted := make([]Tensor, len(tensors))
	copy(sorted, tensors)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	header := make(map[string]any, len(sorted)+1)
	raw := make([]byte, 0, estimateTensorBytes(sorted))

	for _, tensor := range sorted {
		name := strings.TrimSpace(tensor.Name)
		if name == "" {
			return nil, errors.New("safetensors: tensor name must not be empty")
		}

		if name == metadataKey {
			return nil, fmt.Errorf("safetensors: tensor name %q is reserved", name)
		}

		if _, exists := header[name]; exists {
			return nil, fmt.Errorf("safetensors: duplicate tensor name %q", name)
		}

		dtype := tensor.DType
		if dtype == "" {
			dtype = F32
		}

		elemCount, err := shapeElementCount(tensor.Shape)
		if err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}

		if int64(len(tensor.Data)) != elemCount {
			return nil, fmt.Errorf(
				"safetensors: tensor %q shape %v expects %d elements, got %d",
				name,
				tensor.Shape,
				elemCount,
				len(tensor.Data),
			)
		}

		start := len(raw)

		raw, err = appendEncoded(raw, tensor.Data, dtype)
		if err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: %w", name, err)
		}

		header[name] = storeHeaderEntry{
			DType:   string(dtype),
			Shape:   append([]int64{}, tensor.Shape...),
			Offsets: [2]int{start, len(raw)},
		}
	}

	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("safetensors: encode header: %w", err)
	}

	out := make([]byte, 0, 8+len(headerJSON)+len(raw))
	lenPrefix := make([]byte, 8)
	binary.LittleEndian.PutUint64(lenPrefix, uint64(len(headerJSON)))
	out = append(out, lenPrefix...)
	out = append(out, headerJSON...)
	out = append(out, raw...)

	return out, nil
}

// WriteFile writes tensors and metadata into a .safetensors file.
func WriteFile(path string, tensors []Tensor, metadata map[string]string) error {
	data, err := EncodeTensors(tensors, metadata)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("safetensors: write %s: %w", path, err)
	}

	return nil
}

func appendEncoded(raw []byte, data []float32, dtype DType) ([]byte, error) {
	size, err := dtype.Size()
	if err != nil {
		return nil, err
	}

	start := len(raw)
	raw = append(raw, make([]byte, len(data)*size)...)

	for i, v := range data {
		off := start + i*size

		switch dtype {
		case F32:
			binary.LittleEndian.PutUint32(raw[off:], math.Float32bits(v))
		case F16:
			binary.LittleEndian.PutUint16(raw[off:], float16.Fromfloat32(v).Bits())
		case BF16:
			binary.LittleEndian.PutUint16(raw[off:], bfloat16Bits(v))
		}
	}

	return raw, nil
}

// bfloat16Bits rounds v to the nearest bfloat16, ties to even.
func bfloat16Bits(v float32) uint16 {
	bits := math.Float32bits(v)
	if math.IsNaN(float64(v)) {
		return uint16(bits>>16) | 0x40
	}

	bits += 0x7fff + (bits>>16)&1

	return uint16(bits >> 16)
}

func estimateTensorBytes(tensors []Tensor) int {
	total := 0
	for _, tensor := range tensors {
		total += len(tensor.Data) * 4
	}

	return total
}
