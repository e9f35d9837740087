package config

import (
	"fmt"
	"strings"
)

const (
	ShortLinesAccept = "accept"
	ShortLinesReject = "reject"

	MismatchAbort = "abort"
	MismatchSkip  = "skip"

	DTypeF32  = "F32"
	DTypeF16  = "F16"
	DTypeBF16 = "BF16"
)

func NormalizeShortLines(raw string) (string, error) {
	policy := strings.ToLower(strings.TrimSpace(raw))
	if policy == "" {
		policy = ShortLinesAccept
	}

	switch policy {
	case ShortLinesAccept, ShortLinesReject:
		return policy, nil
	default:
		return "", fmt.Errorf("invalid corpus.short_lines %q (expected %s|%s)", raw, ShortLinesAccept, ShortLinesReject)
	}
}

func NormalizeMismatch(raw string) (string, error) {
	policy := strings.ToLower(strings.TrimSpace(raw))
	if policy == "" {
		policy = MismatchAbort
	}

	switch policy {
	case MismatchAbort, MismatchSkip:
		return policy, nil
	default:
		return "", fmt.Errorf("invalid vectors.on_mismatch %q (expected %s|%s)", raw, MismatchAbort, MismatchSkip)
	}
}

func NormalizeDType(raw string) (string, error) {
	dtype := strings.ToUpper(strings.TrimSpace(raw))
	if dtype == "" {
		dtype = DTypeF32
	}

	switch dtype {
	case DTypeF32, DTypeF16, DTypeBF16:
		return dtype, nil
	case "FLOAT32":
		return DTypeF32, nil
	case "FLOAT16", "HALF":
		return DTypeF16, nil
	case "BFLOAT16":
		return DTypeBF16, nil
	default:
		return "", fmt.Errorf("invalid export.dtype %q (expected %s|%s|%s)", raw, DTypeF32, DTypeF16, DTypeBF16)
	}
}
