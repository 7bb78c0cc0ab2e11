package app

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"meal-planner-agent/internal/planner"

	"gopkg.in/yaml.v3"
)

// requestFile is the on-disk form of a plan request. JSON files decode
// through the same path since JSON is valid YAML.
type requestFile struct {
	planner.PlanRequest `yaml:",inline"`
	// InventorySource names a file or URL whose items are added to the
	// inventory.
	InventorySource string `yaml:"inventory_source"`
}

// ParseRequest decodes a YAML or JSON request. Unknown fields are
// rejected. The returned source is the request's inventory_source, if any.
func ParseRequest(data []byte) (req planner.PlanRequest, source string, err error) {
	var f requestFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return planner.PlanRequest{}, "", fmt.Errorf("failed to parse request: %w", err)
	}
	return f.PlanRequest, f.InventorySource, nil
}

// LoadRequest reads a request file, merges the inventory from its
// inventory_source and normalizes the result.
func (a *App) LoadRequest(ctx context.Context, path string) (planner.PlanRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planner.PlanRequest{}, fmt.Errorf("failed to read request: %w", err)
	}
	req, source, err := ParseRequest(data)
	if err != nil {
		return planner.PlanRequest{}, err
	}
	return a.WithInventory(ctx, req, source)
}

// WithInventory adds the items found at source to the request inventory and
// normalizes the request. An empty source only normalizes.
func (a *App) WithInventory(ctx context.Context, req planner.PlanRequest, source string) (planner.PlanRequest, error) {
	if source != "" {
		items, err := a.pantry.Load(ctx, source)
		if err != nil {
			return planner.PlanRequest{}, fmt.Errorf("failed to load inventory: %w", err)
		}
		req.Inventory = append(append([]string(nil), req.Inventory...), items...)
	}
	return req.Normalize()
}
