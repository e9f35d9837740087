// Package safetensors reads and writes float tensors in the safetensors
// format: an 8-byte little-endian header length, a JSON header, then the raw
// tensor bytes.
package safetensors

import (
	"fmt"
	"strings"
)

// DType is a tensor element type on disk. Tensors are always float32 in
// memory.
type DType string

const (
	F32  DType = "F32"
	F16  DType = "F16"
	BF16 DType = "BF16"
)

// metadataKey is the reserved header entry for string metadata.
const metadataKey = "__metadata__"

// ParseDType returns the DType named by s, case-insensitively.
func ParseDType(s string) (DType, error) {
	switch d := DType(strings.ToUpper(strings.TrimSpace(s))); d {
	case F32, F16, BF16:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported dtype %q (want F32, F16 or BF16)", s)
	}
}

// Size returns the number of bytes per element.
func (d DType) Size() (int, error) {
	switch d {
	case F32:
		return 4, nil
	case F16, BF16:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", string(d))
	}
}

// Tensor is a named float32 tensor. DType records the on-disk type it was
// read from or will be written as; empty means F32.
type Tensor struct {
	Name  string
	DType DType
	Shape []int64
	Data  []float32
}
