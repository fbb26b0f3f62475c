// Package targets loads the ordered list of URLs a run fetches.
package targets

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrEmpty is returned when a target source yields no targets.
var ErrEmpty = errors.New("target list is empty")

// DefaultJSONPath selects every element of a top-level JSON array of strings.
const DefaultJSONPath = "@this"

// Options control how a target file is read.
type Options struct {
	// Limit keeps only the first Limit targets. Zero keeps all of them.
	Limit int
	// JSONPath is a gjson path selecting target strings. Setting it forces
	// JSON parsing regardless of the file extension.
	JSONPath string
}

// Load reads targets from path. Plain files hold one target per line; blank
// lines are skipped and surrounding space trimmed. Files ending in .json, or
// any file when JSONPath is set, are parsed as JSON. Duplicates are kept.
func Load(path string, opt Options) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}

	var list []string
	if opt.JSONPath != "" || strings.EqualFold(filepath.Ext(path), ".json") {
		list, err = ParseJSON(data, opt.JSONPath)
	} else {
		list, err = ParseLines(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parse targets %s: %w", path, err)
	}

	if opt.Limit > 0 && len(list) > opt.Limit {
		list = list[:opt.Limit]
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return list, nil
}

// ParseLines returns the trimmed non-empty lines of s.
func ParseLines(s string) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseJSON extracts target strings from a JSON document using a gjson path,
// e.g. "sites.#.url". An empty path expects a top-level array of strings.
func ParseJSON(data []byte, path string) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	if path == "" {
		path = DefaultJSONPath
	}

	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return nil, fmt.Errorf("path %q matched nothing", path)
	}

	var out []string
	collect := func(v gjson.Result) error {
		if v.Type != gjson.String {
			return fmt.Errorf("path %q selected non-string value %s", path, v.Raw)
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
		return nil
	}

	if !res.IsArray() {
		if err := collect(res); err != nil {
			return nil, err
		}
		return out, nil
	}
	for _, v := range res.Array() {
		if err := collect(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}
