package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/go-seqprep/internal/corpus"
	"github.com/example/go-seqprep/internal/dataset"
	"github.com/example/go-seqprep/internal/embedding"
	"github.com/example/go-seqprep/internal/encode"
	"github.com/example/go-seqprep/internal/server"
	"github.com/example/go-seqprep/internal/tokenizer"
	"github.com/example/go-seqprep/internal/vectors"
	"github.com/example/go-seqprep/internal/vocab"
)

// newTestModel prepares the two-sentence scenario corpus in memory.
// Words: went=0, a=1, bob=2. Tags: O=0, A-PER=1, B-PER=2.
func newTestModel(t *testing.T, withMatrix bool) *server.Model {
	t.Helper()

	c, err := corpus.Load([]string{"Bob B-PER", "went O", "", "A A-PER", "went O", ""}, corpus.Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tok := tokenizer.NewWordTokenizer(tokenizer.Options{Lower: true})
	if err := tok.Fit(c.Texts()); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	tags := vocab.BuildTags(c)

	seqs, err := encode.New(tok, tags).Corpus(c)
	if err != nil {
		t.Fatalf("Corpus: %v", err)
	}

	b := &dataset.Bundle{Dataset: dataset.New(tok, tags, seqs)}

	if withMatrix {
		vecs, err := vectors.NewTable(map[string][]float32{"went": {0.5, 1.5}})
		if err != nil {
			t.Fatalf("NewTable: %v", err)
		}

		b.Matrix, _ = embedding.Assemble(tok.Index(), vecs)
	}

	m, err := server.NewModel(b)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	return m
}

// stubBackend fails every call with err.
type stubBackend struct {
	err error
}

func (s *stubBackend) Info() server.VocabInfo { return server.VocabInfo{} }
func (s *stubBackend) EncodeWords(_ []string) ([]int, error) {
	return nil, s.err
}
func (s *stubBackend) EncodePairs(_, _ []string) (encode.Sequence, error) {
	return encode.Sequence{}, s.err
}
func (s *stubBackend) Embedding(_ string) (int, []float32, error) {
	return 0, nil, s.err
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

func TestHealth_Returns200WithStatusOK(t *testing.T) {
	h := server.NewHandler(newTestModel(t, false))

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("want status=ok, got %q", body["status"])
	}

	if _, ok := body["version"]; !ok {
		t.Error("want version field in response")
	}
}

// ---------------------------------------------------------------------------
// GET /vocab
// ---------------------------------------------------------------------------

func TestVocab_ReportsSizes(t *testing.T) {
	h := server.NewHandler(newTestModel(t, true))

	rec := doRequest(t, h, http.MethodGet, "/vocab", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var info server.VocabInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if info.Words != 3 || info.PaddingRow != 3 || info.Dim != 2 {
		t.Errorf("info = %+v; want words=3 padding_row=3 dim=2", info)
	}

	if strings.Join(info.Tags, ",") != "O,A-PER,B-PER" {
		t.Errorf("tags = %v; want [O A-PER B-PER]", info.Tags)
	}

	if info.DatasetID == "" {
		t.Error("want dataset_id")
	}
}

func TestVocab_MethodNotAllowed(t *testing.T) {
	h := server.NewHandler(newTestModel(t, false))

	if rec := doRequest(t, h, http.MethodPost, "/vocab", "{}"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /encode
// ---------------------------------------------------------------------------

func TestEncode_TokensAndTags(t *testing.T) {
	h := server.NewHandler(newTestModel(t, false))

	rec := doRequest(t, h, http.MethodPost, "/encode", `{"tokens":["Bob","went"],"tags":["B-PER","O"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		WordIDs []int `json:"word_ids"`
		TagIDs  []int `json:"tag_ids"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(body.WordIDs) != 2 || body.WordIDs[0] != 2 || body.WordIDs[1] != 0 {
		t.Errorf("word_ids = %v; want [2 0]", body.WordIDs)
	}

	if len(body.TagIDs) != 2 || body.TagIDs[0] != 2 || body.TagIDs[1] != 0 {
		t.Errorf("tag_ids = %v; want [2 0]", body.TagIDs)
	}
}

func TestEncode_TokensOnly(t *testing.T) {
	h := server.NewHandler(newTestModel(t, false))

	rec := doRequest(t, h, http.MethodPost, "/encode", `{"tokens":["A","went","went"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if string(body["word_ids"]) != "[1,0,0]" {
		t.Errorf("word_ids = %s; want [1,0,0]", body["word_ids"])
	}

	if _, ok := body["tag_ids"]; ok {
		t.Error("tag_ids must be omitted when no tags are sent")
	}
}

func TestEncode_UnknownItemIs422(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantAxis string
		wantItem string
		wantPos  int
	}{
		{"unknown word", `{"tokens":["went","Alice"]}`, "word", "Alice", 1},
		{"unknown tag", `{"tokens":["went"],"tags":["I-LOC"]}`, "tag", "I-LOC", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := server.NewHandler(newTestModel(t, false))

			rec := doRequest(t, h, http.MethodPost, "/encode", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("want 422, got %d", rec.Code)
			}

			var body struct {
				Error    string `json:"error"`
				Axis     string `json:"axis"`
				Item     string `json:"item"`
				Position int    `json:"position"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}

			if body.Axis != tt.wantAxis || body.Item != tt.wantItem || body.Position != tt.wantPos {
				t.Errorf("body = %+v; want axis=%s item=%s position=%d", body, tt.wantAxis, tt.wantItem, tt.wantPos)
			}
		})
	}
}

func TestEncode_RequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, `{"tokens":`, http.StatusBadRequest},
		{"no tokens", http.MethodPost, `{"tokens":[]}`, http.StatusBadRequest},
		{"tag count mismatch", http.MethodPost, `{"tokens":["went"],"tags":["O","O"]}`, http.StatusBadRequest},
		{"over token limit", http.MethodPost, `{"tokens":["went","went","went"]}`, http.StatusRequestEntityTooLarge},
		{"at token limit", http.MethodPost, `{"tokens":["went","went"]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := server.NewHandler(newTestModel(t, false), server.WithMaxTokens(2))

			rec := doRequest(t, h, tt.method, "/encode", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("want %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestEncode_OversizedBodyIs413(t *testing.T) {
	h := server.NewHandler(newTestModel(t, false), server.WithMaxTokens(0))

	big := `{"tokens":["` + strings.Repeat("x", 2<<20) + `"]}`

	if rec := doRequest(t, h, http.MethodPost, "/encode", big); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
}

func TestEncode_BackendFailureIs500(t *testing.T) {
	h := server.NewHandler(&stubBackend{err: errors.New("boom")})

	rec := doRequest(t, h, http.MethodPost, "/encode", `{"tokens":["x"]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// GET /embedding
// ---------------------------------------------------------------------------

func TestEmbedding_ReturnsRow(t *testing.T) {
	h := server.NewHandler(newTestModel(t, true))

	rec := doRequest(t, h, http.MethodGet, "/embedding?word=Went", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body struct {
		Word   string    `json:"word"`
		ID     int       `json:"id"`
		Vector []float32 `json:"vector"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if body.ID != 0 || len(body.Vector) != 2 || body.Vector[0] != 0.5 || body.Vector[1] != 1.5 {
		t.Errorf("body = %+v; want id 0 vector [0.5 1.5]", body)
	}
}

func TestEmbedding_UncoveredWordIsZeroRow(t *testing.T) {
	h := server.NewHandler(newTestModel(t, true))

	rec := doRequest(t, h, http.MethodGet, "/embedding?word=bob", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body struct {
		Vector []float32 `json:"vector"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if len(body.Vector) != 2 || body.Vector[0] != 0 || body.Vector[1] != 0 {
		t.Errorf("vector = %v; want zeros", body.Vector)
	}
}

func TestEmbedding_Errors(t *testing.T) {
	tests := []struct {
		name       string
		withMatrix bool
		target     string
		want       int
	}{
		{"missing word parameter", true, "/embedding", http.StatusBadRequest},
		{"word not in vocabulary", true, "/embedding?word=zebra", http.StatusNotFound},
		{"no matrix", false, "/embedding?word=went", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := server.NewHandler(newTestModel(t, tt.withMatrix))

			if rec := doRequest(t, h, http.MethodGet, tt.target, ""); rec.Code != tt.want {
				t.Fatalf("want %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
