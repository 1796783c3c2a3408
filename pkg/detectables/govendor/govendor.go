// Package govendor reads vendor/vendor.json manifests written by the
// govendor tool.
package govendor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/matzehuels/stackscan/pkg/dag"
	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
)

// Forge is the namespace of Go import paths.
const Forge = "golang"

type vendorJSON struct {
	RootPath string          `json:"rootPath"`
	Packages []vendorPackage `json:"package"`
}

type vendorPackage struct {
	Path     string `json:"path"`
	Revision string `json:"revision"`
	Version  string `json:"version"`
}

// Detectable is the go-vendor handler.
type Detectable struct {
	vendorJSON string
}

func New() *Detectable { return &Detectable{} }

func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
	req := detect.NewRequirements(env)
	if vendorDir, ok := req.File("vendor"); ok {
		d.vendorJSON, _ = req.FileIn(vendorDir, "vendor.json")
	}
	return req.Result()
}

func (d *Detectable) Extractable(*detect.Environment) detect.Result {
	return detect.Passed{}
}

// Inputs implements detect.Fingerprinted.
func (d *Detectable) Inputs() []string { return []string{d.vendorJSON} }

func (d *Detectable) Extract(context.Context, *detect.Environment) *detect.Extraction {
	data, err := os.ReadFile(d.vendorJSON)
	if err != nil {
		return detect.Errored(errors.Wrap(errors.ErrCodeInvalidInput, err, "read vendor.json"))
	}
	var v vendorJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return detect.Errored(errors.Wrap(errors.ErrCodeInvalidInput, err, "parse vendor.json"))
	}

	g := dag.New(nil)
	for _, p := range v.Packages {
		if p.Path == "" {
			continue
		}
		version := p.Version
		if version == "" {
			version = p.Revision
		}
		node := dag.Dependency(Forge, p.Path, version)
		if _, err := g.EnsureNode(node); err == nil {
			_ = g.AddRoot(node.ID)
		}
	}

	var opts []detect.ExtractionOption
	if v.RootPath != "" {
		opts = append(opts, detect.WithProject(filepath.Base(v.RootPath), ""))
	}
	return detect.Succeeded(g, opts...)
}
