package testutil

import (
	"encoding/binary"
	"encoding/json"
	"testing"
)

// AssertValidSafetensors checks the framing of a safetensors payload: the
// header length prefix, a JSON object header, a __metadata__ entry and
// tensor offsets that stay inside the file.
func AssertValidSafetensors(tb testing.TB, data []byte) {
	tb.Helper()

	if len(data) < 8 {
		tb.Fatalf("safetensors data too short: %d bytes", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		tb.Fatalf("safetensors: header length %d exceeds payload %d", headerLen, len(data)-8)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		tb.Fatalf("safetensors: header is not a JSON object: %v", err)
	}

	if _, ok := header["__metadata__"]; !ok {
		tb.Fatal("safetensors: missing __metadata__ entry")
	}

	body := uint64(len(data)) - 8 - headerLen

	for name, raw := range header {
		if name == "__metadata__" {
			continue
		}

		var entry struct {
			Offsets [2]uint64 `json:"data_offsets"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			tb.Fatalf("safetensors: tensor %q entry: %v", name, err)
		}

		if entry.Offsets[1] < entry.Offsets[0] || entry.Offsets[1] > body {
			tb.Fatalf("safetensors: tensor %q offsets %v outside body of %d bytes", name, entry.Offsets, body)
		}
	}
}
