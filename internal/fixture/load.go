// Package fixture reads raw documents from fixture files and writes them to a
// store.
//
// Fixture files hold documents exactly as they would be stored, at whatever
// schema version they were written: no shape is applied on the way in.
//
// Supported formats, chosen by extension:
//
//	.yaml .yml   a "documents:" list, a top-level list, or a stream of documents
//	.toml        [[documents]] tables
//	.json .jsonl one relaxed extended JSON document per line
//
// Unquoted YAML timestamps are stored as datetimes; quote them to keep a string.
package fixture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
)

// ErrUnsupportedFormat is returned for a file extension with no reader.
var ErrUnsupportedFormat = errors.New("unsupported fixture format")

// Supported reports whether path has a fixture extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".toml", ".json", ".jsonl":
		return true
	}
	return false
}

// LoadFile reads every document in the fixture file at path.
func LoadFile(path string) ([]doc.Raw, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var docs []doc.Raw
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		docs, err = FromYAML(bytes.NewReader(data))
	case ".toml":
		docs, err = FromTOML(data)
	default:
		docs, err = FromJSONL(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// FromYAML reads a YAML stream. Each stream entry may be a single document,
// a list of documents, or a mapping with a "documents" list.
func FromYAML(r io.Reader) ([]doc.Raw, error) {
	dec := yaml.NewDecoder(r)

	var docs []doc.Raw
	for entry := 1; ; entry++ {
		var node any
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML in entry %d: %w", entry, err)
		}

		items, err := yamlItems(node)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", entry, err)
		}
		for i, item := range items {
			raw, err := toRaw(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d, document %d: %w", entry, i+1, err)
			}
			docs = append(docs, raw)
		}
	}
	return docs, nil
}

func yamlItems(node any) ([]any, error) {
	switch x := node.(type) {
	case nil:
		return nil, nil
	case []any:
		return x, nil
	case map[string]any:
		if list, ok := x["documents"]; ok && len(x) == 1 {
			items, ok := list.([]any)
			if !ok {
				return nil, fmt.Errorf("documents is %T, want a list", list)
			}
			return items, nil
		}
		return []any{x}, nil
	default:
		return nil, fmt.Errorf("unexpected %T at top level", node)
	}
}

type tomlFixture struct {
	Documents []map[string]any `toml:"documents"`
}

// FromTOML reads [[documents]] tables.
func FromTOML(data []byte) ([]doc.Raw, error) {
	var f tomlFixture
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unexpected TOML keys outside [[documents]]: %v", undecoded)
	}

	docs := make([]doc.Raw, 0, len(f.Documents))
	for i, m := range f.Documents {
		raw, err := toRaw(m)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		docs = append(docs, raw)
	}
	return docs, nil
}

// FromJSONL reads one relaxed extended JSON document per line. Blank lines
// are skipped.
func FromJSONL(r io.Reader) ([]doc.Raw, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var docs []doc.Raw
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw, err := doc.UnmarshalExtJSON(line)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}
		docs = append(docs, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSON lines: %w", err)
	}
	return docs, nil
}

func toRaw(item any) (doc.Raw, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document is %T, want a mapping", item)
	}
	raw := make(doc.Raw, len(m))
	for k, v := range m {
		val, err := doc.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		raw[k] = val
	}
	if _, err := raw.ID(); err != nil {
		return nil, err
	}
	if _, err := raw.Version(); err != nil {
		return nil, err
	}
	return raw, nil
}
