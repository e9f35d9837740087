package vectors

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// maxLineBytes bounds a single entry; 300-d GloVe lines are ~3 KB.
const maxLineBytes = 4 * 1024 * 1024

// Parse reads a text vector file from r.
func Parse(r io.Reader, opts Options) (*Table, error) {
	if opts.OnMismatch == "" {
		opts.OnMismatch = MismatchAbort
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	t := &Table{vectors: make(map[string][]float32)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	first := true

	for sc.Scan() {
		lineNo++

		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		if first {
			first = false

			if opts.DetectHeader {
				dim, ok, err := parseHeader(fields)
				if err != nil {
					return nil, &EntryError{Line: lineNo, Token: fields[0], Reason: err.Error()}
				}

				if ok {
					t.dim = dim
					continue
				}
			}
		}

		token, comps := fields[0], fields[1:]
		if len(comps) == 0 {
			return nil, &EntryError{Line: lineNo, Token: token, Reason: "no components"}
		}

		if t.dim == 0 {
			t.dim = len(comps)
		}

		if len(comps) != t.dim {
			mismatch := &DimensionMismatchError{Line: lineNo, Token: token, Got: len(comps), Want: t.dim}
			if opts.OnMismatch != MismatchSkip {
				return nil, mismatch
			}

			t.skipped++
			log.Warn("skipping vector entry",
				slog.Int("line", lineNo),
				slog.String("token", token),
				slog.Int("got", len(comps)),
				slog.Int("want", t.dim),
			)

			continue
		}

		vec := make([]float32, len(comps))
		for i, c := range comps {
			f, err := strconv.ParseFloat(c, 32)
			if err != nil {
				return nil, &EntryError{Line: lineNo, Token: token, Reason: fmt.Sprintf("component %d %q is not a number", i, c)}
			}

			vec[i] = float32(f)
		}

		if _, dup := t.vectors[token]; dup {
			log.Debug("duplicate vector entry replaced", slog.Int("line", lineNo), slog.String("token", token))
		}

		t.vectors[token] = vec
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}

	log.Debug("vectors loaded",
		slog.Int("tokens", len(t.vectors)),
		slog.Int("dim", t.dim),
		slog.Int("skipped", t.skipped),
	)

	return t, nil
}

// ReadFile parses the vector file at path.
func ReadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

// parseHeader recognises a "count dim" header line.
func parseHeader(fields []string) (dim int, ok bool, err error) {
	if len(fields) != 2 {
		return 0, false, nil
	}

	count, errCount := strconv.Atoi(fields[0])
	dim, errDim := strconv.Atoi(fields[1])

	if errCount != nil || errDim != nil {
		return 0, false, nil
	}

	if count < 0 || dim <= 0 {
		return 0, false, fmt.Errorf("invalid header %q", strings.Join(fields, " "))
	}

	return dim, true, nil
}
