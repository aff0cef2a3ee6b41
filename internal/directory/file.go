package directory

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource reads hosts from a file. Files ending in .yaml or .yml hold
// either a list or a mapping with a "hosts" key. Anything else is plain text
// with one or more comma separated names per line and # comments.
type FileSource struct {
	Path string
}

func (f FileSource) Hosts(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &DiscoveryError{Source: f.Path, Err: err}
	}

	var hosts []string
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		hosts, err = parseYAMLHosts(data)
	default:
		hosts, err = parseTextHosts(data)
	}
	if err != nil {
		return nil, &DiscoveryError{Source: f.Path, Err: err}
	}
	if len(hosts) == 0 {
		return nil, &DiscoveryError{Source: f.Path, Err: ErrEmptyHostList}
	}
	return hosts, nil
}

func parseTextHosts(data []byte) ([]string, error) {
	var raw []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		raw = append(raw, strings.Split(line, ",")...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NormalizeHosts(raw), nil
}

func parseYAMLHosts(data []byte) ([]string, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid host file: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m["hosts"]
	}
	return SplitHostList(doc)
}
