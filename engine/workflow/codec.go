package workflow

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/mohae/deepcopy"
)

const excerptRadius = 40

// Marshal serializes w deterministically. HTML characters are not escaped so
// customer-facing text such as "&" survives verbatim.
func Marshal(w *Workflow) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse decodes a workflow document. Syntax and type errors are reported as
// *core.SubstitutionParseError carrying the byte offset and an excerpt.
func Parse(data []byte) (*Workflow, error) {
	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, parseError(data, err)
	}
	return &w, nil
}

// ParseStrict behaves like Parse but also rejects objects with duplicate keys,
// which decode silently with the last value winning.
func ParseStrict(data []byte) (*Workflow, error) {
	if err := CheckDuplicateKeys(data); err != nil {
		return nil, err
	}
	return Parse(data)
}

func parseError(data []byte, err error) error {
	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	case errors.Is(err, io.ErrUnexpectedEOF):
		offset = int64(len(data))
	}
	if offset < 0 {
		return &core.SubstitutionParseError{Offset: -1, Err: err}
	}
	line, column := position(data, offset)
	return &core.SubstitutionParseError{
		Offset:  offset,
		Line:    line,
		Column:  column,
		Excerpt: Excerpt(data, offset),
		Err:     err,
	}
}

// Excerpt returns the text surrounding offset, clamped to the buffer and
// widened to rune boundaries.
func Excerpt(data []byte, offset int64) string {
	start := min(max(int(offset)-excerptRadius, 0), len(data))
	end := min(max(int(offset)+excerptRadius, 0), len(data))
	if start > end {
		start = end
	}
	for start > 0 && start < len(data) && !utf8.RuneStart(data[start]) {
		start--
	}
	for end < len(data) && !utf8.RuneStart(data[end]) {
		end++
	}
	return string(data[start:end])
}

func position(data []byte, offset int64) (int, int) {
	end := min(int(offset), len(data))
	prefix := data[:end]
	line := bytes.Count(prefix, []byte("\n")) + 1
	column := end - bytes.LastIndexByte(prefix, '\n')
	return line, column
}

// CheckDuplicateKeys walks the token stream and fails on the first object that
// repeats a key.
func CheckDuplicateKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	type frame struct {
		object   bool
		keys     map[string]struct{}
		expectKV bool
	}
	var stack []*frame
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return parseError(data, err)
		}
		var top *frame
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				if top != nil && top.object {
					top.expectKV = true
				}
				stack = append(stack, &frame{object: v == '{', keys: map[string]struct{}{}, expectKV: true})
			case '}', ']':
				stack = stack[:len(stack)-1]
			}
			continue
		case string:
			if top != nil && top.object && top.expectKV {
				if _, dup := top.keys[v]; dup {
					offset := dec.InputOffset()
					return &core.SubstitutionParseError{
						Offset:  offset,
						Excerpt: Excerpt(data, offset),
						Err:     fmt.Errorf("duplicate key %q", v),
						Line:    lineOf(data, offset),
						Column:  columnOf(data, offset),
					}
				}
				top.keys[v] = struct{}{}
				top.expectKV = false
				continue
			}
		}
		if top != nil && top.object {
			top.expectKV = true
		}
	}
}

func lineOf(data []byte, offset int64) int {
	line, _ := position(data, offset)
	return line
}

func columnOf(data []byte, offset int64) int {
	_, column := position(data, offset)
	return column
}

// Clone returns a deep copy of w; mutations of the copy never reach w.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	copied, ok := deepcopy.Copy(w).(*Workflow)
	if !ok {
		panic("workflow: deep copy returned unexpected type")
	}
	return copied
}

// EnsureNodeIDs assigns a stable id to every node that lacks one. The id is a
// name-based UUID so repeated injections of the same template stay identical.
func (w *Workflow) EnsureNodeIDs(namespace string) {
	for i := range w.Nodes {
		if w.Nodes[i].ID != "" {
			continue
		}
		seed := "inboxflow:" + namespace + ":" + w.Nodes[i].Name
		w.Nodes[i].ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
	}
}

// NewFallback returns the minimal named template used when a provider
// template cannot be loaded.
func NewFallback(provider Provider) *Workflow {
	return &Workflow{
		Name:        "fallback-" + strings.ToLower(string(provider)),
		Nodes:       []Node{},
		Connections: Connections{},
		Settings:    Settings{},
	}
}

// IsFallback reports whether w was produced by NewFallback.
func (w *Workflow) IsFallback() bool {
	return strings.HasPrefix(w.Name, "fallback-") && len(w.Nodes) == 0
}

func sortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
