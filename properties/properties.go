// Package properties reads and writes HiPS "properties" descriptors.
//
// A descriptor is a text file with one "key = value" pair per line. Lines starting
// with '#' are comments. Key order is preserved across Parse and WriteTo so that an
// existing descriptor can be updated in place.
package properties

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	KeyOrder      = "hips_order"
	KeyTileFormat = "hips_tile_format"
	KeyTileWidth  = "hips_tile_width"
)

type Properties struct {
	keys   []string
	values map[string]string
}

func New() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Parse reads a descriptor. Malformed lines are reported with their line number.
func Parse(r io.Reader) (*Properties, error) {
	p := New()
	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("properties: line %d: missing '='", lineNum)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("properties: line %d: empty key", lineNum)
		}
		p.Set(key, strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Properties) Get(key string) (string, bool) {
	value, ok := p.values[key]
	return value, ok
}

// Set assigns a value, keeping the key's position if it already exists.
func (p *Properties) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Merge sets every key of other on p.
func (p *Properties) Merge(other *Properties) {
	for _, key := range other.keys {
		p.Set(key, other.values[key])
	}
}

func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int {
	return len(p.keys)
}

// Order returns the hips_order value.
func (p *Properties) Order() (int, error) {
	value, ok := p.values[KeyOrder]
	if !ok {
		return 0, fmt.Errorf("properties: %s not set", KeyOrder)
	}
	order, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("properties: %s: %w", KeyOrder, err)
	}
	return order, nil
}

func (p *Properties) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for _, key := range p.keys {
		n, err := fmt.Fprintf(bw, "%-20s = %s\n", key, p.values[key])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

func (p *Properties) String() string {
	var sb strings.Builder
	p.WriteTo(&sb)
	return sb.String()
}
