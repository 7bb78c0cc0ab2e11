// Package pantry imports a kitchen inventory from a text, YAML or HTML file
// or from a web page such as a shared shopping app list.
package pantry

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// Loader reads inventories. The zero value is not usable; use NewLoader.
type Loader struct {
	httpClient *http.Client
}

// NewLoader creates a Loader with a bounded HTTP timeout.
func NewLoader() *Loader {
	return &Loader{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// Load reads the inventory from source using a default Loader.
func Load(ctx context.Context, source string) ([]string, error) {
	return NewLoader().Load(ctx, source)
}

// Load reads the inventory from source, which is either an http(s) URL or a
// file path. Files are parsed by extension: .yaml/.yml, .html/.htm, and
// anything else as plain text with one item per line. The result is
// trimmed and deduplicated case-insensitively.
func (l *Loader) Load(ctx context.Context, source string) ([]string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty inventory source")
	}

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetch(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", source, err)
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".html", ".htm":
		return FromHTML(bytes.NewReader(data))
	default:
		return FromText(bytes.NewReader(data))
	}
}

func (l *Loader) fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/plain") {
		return FromText(resp.Body)
	}
	return FromHTML(resp.Body)
}

// FromHTML reads list items from a page after dropping scripts, navigation
// and other noise. Pages without list items fall back to one item per text
// line.
func FromHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, nav, footer, header, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var items []string
	doc.Find("li").Each(func(i int, s *goquery.Selection) {
		// Nested lists contribute their own items.
		clone := s.Clone()
		clone.Find("ul, ol").Remove()
		items = append(items, clone.Text())
	})

	if len(items) == 0 {
		return FromText(strings.NewReader(doc.Find("body").Text()))
	}
	return clean(items), nil
}

// FromText reads one item per line. Blank lines and lines starting with #
// are skipped, list markers are stripped and comma separated lines are
// split.
func FromText(r io.Reader) ([]string, error) {
	var items []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimLeft(line, "-*• \t")
		items = append(items, strings.Split(line, ",")...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return clean(items), nil
}

// FromYAML accepts a plain list, a mapping with an "inventory" list, or a
// mapping of categories to lists.
func FromYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse inventory yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := root.Decode(&items); err != nil {
			return nil, err
		}
		return clean(items), nil

	case yaml.MappingNode:
		var grouped map[string][]string
		if err := root.Decode(&grouped); err != nil {
			return nil, fmt.Errorf("inventory yaml must map names to lists: %w", err)
		}
		if inv, ok := grouped["inventory"]; ok {
			return clean(inv), nil
		}
		var items []string
		for _, key := range sortedKeys(grouped) {
			items = append(items, grouped[key]...)
		}
		return clean(items), nil
	}

	return nil, fmt.Errorf("inventory yaml must be a list or a mapping")
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clean(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.Join(strings.Fields(item), " ")
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
