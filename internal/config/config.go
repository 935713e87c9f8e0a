// Package config loads the worker manifest: an HCL file declaring the
// worker's identity, how it serves, and the plans it advertises. Declared
// argument shapes are validated at load time, before any plan is traced.
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/planweave/internal/tensor"
)

// Model is the decoded worker manifest.
type Model struct {
	Worker WorkerBlock
	Log    LogBlock
	Plans  []PlanBlock
}

// WorkerBlock declares the worker's identity and listen address.
type WorkerBlock struct {
	ID     string `hcl:"id"`
	Listen string `hcl:"listen,optional"`
}

// LogBlock declares logging settings.
type LogBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// PlanBlock declares one advertised plan: its name, the shape of each
// formal argument, and searchable tags.
type PlanBlock struct {
	Name      string   `hcl:"name,label"`
	ArgShapes [][]int  `hcl:"args_shape,optional"`
	Tags      []string `hcl:"tags,optional"`
}

// Shapes converts the declared argument shapes.
func (p PlanBlock) Shapes() []tensor.Shape {
	out := make([]tensor.Shape, len(p.ArgShapes))
	for i, s := range p.ArgShapes {
		out[i] = tensor.Shape(s)
	}
	return out
}

// fileSchema is the gohcl decoding target.
type fileSchema struct {
	Worker *WorkerBlock `hcl:"worker,block"`
	Log    *LogBlock    `hcl:"log,block"`
	Plans  []PlanBlock  `hcl:"plan,block"`
	Remain hcl.Body     `hcl:",remain"`
}

// Load parses and validates a manifest file.
func Load(path string) (*Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parsing %s: %w", path, diags)
	}
	return decode(file.Body)
}

// LoadSource parses a manifest from memory, for tests and embedding.
func LoadSource(src []byte, filename string) (*Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parsing %s: %w", filename, diags)
	}
	return decode(file.Body)
}

func decode(body hcl.Body) (*Model, error) {
	var raw fileSchema
	if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("config: decoding: %w", diags)
	}
	if raw.Worker == nil {
		return nil, fmt.Errorf("config: missing required worker block")
	}
	if raw.Worker.ID == "" {
		return nil, fmt.Errorf("config: worker id must not be empty")
	}

	m := &Model{Worker: *raw.Worker, Plans: raw.Plans}
	if raw.Log != nil {
		m.Log = *raw.Log
	}
	if m.Log.Level == "" {
		m.Log.Level = "info"
	}
	if m.Log.Format == "" {
		m.Log.Format = "text"
	}

	seen := make(map[string]struct{})
	for _, p := range m.Plans {
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("config: duplicate plan declaration %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		for i, s := range p.Shapes() {
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("config: plan %q argument %d: %w", p.Name, i, err)
			}
		}
	}
	return m, nil
}
