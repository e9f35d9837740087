package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
)

// ShortLinePolicy decides what happens to a line with a single field.
type ShortLinePolicy string

const (
	// ShortLineAccept keeps the line, using the field as both token and tag.
	ShortLineAccept ShortLinePolicy = "accept"
	// ShortLineReject fails the load with a *LineError.
	ShortLineReject ShortLinePolicy = "reject"
)

// maxLineBytes bounds a single corpus line read by Read.
const maxLineBytes = 4 * 1024 * 1024

// Options configures a Loader.
type Options struct {
	ShortLines ShortLinePolicy
	Logger     *slog.Logger
}

// Stats counts what a Loader has seen so far.
type Stats struct {
	Lines      int // raw lines consumed
	Sentences  int // sentences emitted
	Filtered   int // sentences dropped by the sentinel filter
	ShortLines int // one-field lines accepted
}

// Loader accumulates lines into sentences.
type Loader struct {
	opts    Options
	log     *slog.Logger
	current Sentence
	corpus  Corpus
	stats   Stats
}

// NewLoader returns a Loader. An empty ShortLines policy means
// ShortLineAccept.
func NewLoader(opts Options) *Loader {
	if opts.ShortLines == "" {
		opts.ShortLines = ShortLineAccept
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Loader{opts: opts, log: log}
}

// Add processes one raw line.
func (l *Loader) Add(raw string) error {
	l.stats.Lines++

	line := NormalizeDigits(strings.TrimRightFunc(raw, unicode.IsSpace))
	if line == "" {
		l.flush()
		return nil
	}

	if line[0] == ' ' {
		line = SpacePlaceholder + line[1:]
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		if l.opts.ShortLines == ShortLineReject {
			return &LineError{Line: l.stats.Lines, Text: line, Err: ErrMalformedLine}
		}

		l.stats.ShortLines++
	}

	l.current = append(l.current, Pair{Token: fields[0], Tag: fields[len(fields)-1]})

	return nil
}

// Finish flushes any pending sentence and returns the corpus.
func (l *Loader) Finish() Corpus {
	l.flush()

	if l.stats.ShortLines > 0 {
		l.log.Warn("accepted corpus lines without a separate tag",
			slog.Int("short_lines", l.stats.ShortLines),
		)
	}

	l.log.Debug("corpus loaded",
		slog.Int("lines", l.stats.Lines),
		slog.Int("sentences", l.stats.Sentences),
		slog.Int("filtered", l.stats.Filtered),
	)

	return l.corpus
}

// Stats returns the counters accumulated so far.
func (l *Loader) Stats() Stats { return l.stats }

func (l *Loader) flush() {
	if len(l.current) == 0 {
		return
	}

	if isSentinel(l.current) {
		l.stats.Filtered++
	} else {
		l.corpus = append(l.corpus, l.current)
		l.stats.Sentences++
	}

	l.current = nil
}

// Load parses lines that were already read from storage.
func Load(lines []string, opts Options) (Corpus, error) {
	l := NewLoader(opts)
	for _, line := range lines {
		if err := l.Add(line); err != nil {
			return nil, err
		}
	}

	return l.Finish(), nil
}

// Consume feeds every line of r to the loader.
func (l *Loader) Consume(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		if err := l.Add(sc.Text()); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}

	return nil
}

// Read parses a corpus from r.
func Read(r io.Reader, opts Options) (Corpus, error) {
	l := NewLoader(opts)
	if err := l.Consume(r); err != nil {
		return nil, err
	}

	return l.Finish(), nil
}

// ReadFile parses the corpus stored at path.
func ReadFile(path string, opts Options) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	c, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}
