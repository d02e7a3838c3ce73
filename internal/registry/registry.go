// Package registry loads the master operator and product lists from YAML and
// imports them into the ledger.
package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
)

// File is the registry.yml document.
type File struct {
	Version   string            `yaml:"version"`
	Operators []ledger.Operator `yaml:"operators"`
	Products  []ledger.Product  `yaml:"products"`
}

// Writer is the ledger surface used by Import.
type Writer interface {
	UpsertOperator(ctx context.Context, op ledger.Operator) error
	UpsertProduct(ctx context.Context, p ledger.Product) error
}

// Result counts the entries written by Import.
type Result struct {
	Operators int
	Products  int
}

// Load reads and validates a registry file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates registry YAML. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return &f, nil
}

// Validate trims every entry in place and checks required fields and duplicates.
func (f *File) Validate() error {
	if f.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", f.Version)
	}

	operators := make(map[string]bool, len(f.Operators))
	for i := range f.Operators {
		op := &f.Operators[i]
		op.OperatorID = strings.TrimSpace(op.OperatorID)
		op.Name = strings.TrimSpace(op.Name)
		if op.OperatorID == "" {
			return fmt.Errorf("operators[%d]: id is required", i)
		}
		if op.Name == "" {
			return fmt.Errorf("operators[%d] (%s): name is required", i, op.OperatorID)
		}
		if operators[op.OperatorID] {
			return fmt.Errorf("operators[%d]: duplicate id '%s'", i, op.OperatorID)
		}
		operators[op.OperatorID] = true
	}

	products := make(map[string]bool, len(f.Products))
	for i := range f.Products {
		p := &f.Products[i]
		p.MachineID = strings.TrimSpace(p.MachineID)
		p.ProductID = strings.TrimSpace(p.ProductID)
		if p.MachineID == "" || p.ProductID == "" {
			return fmt.Errorf("products[%d]: machine and product are required", i)
		}
		// Product ids match case-insensitively in the ledger.
		key := p.MachineID + "\x00" + strings.ToLower(p.ProductID)
		if products[key] {
			return fmt.Errorf("products[%d]: duplicate product '%s' on machine '%s'", i, p.ProductID, p.MachineID)
		}
		products[key] = true
	}

	return nil
}

// Import upserts every entry of f. Operators are written before products.
// It stops at the first failure; entries already written stay written.
func Import(ctx context.Context, w Writer, f *File) (Result, error) {
	var res Result
	for _, op := range f.Operators {
		if err := w.UpsertOperator(ctx, op); err != nil {
			return res, fmt.Errorf("import operator %s: %w", op.OperatorID, err)
		}
		res.Operators++
	}
	for _, p := range f.Products {
		if err := w.UpsertProduct(ctx, p); err != nil {
			return res, fmt.Errorf("import product %s/%s: %w", p.MachineID, p.ProductID, err)
		}
		res.Products++
	}
	return res, nil
}
