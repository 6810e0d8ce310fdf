// SPDX-License-Identifier: MIT

package webui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a Bundle, shared by the YAML bundle
// file and the JSON description.
type Document struct {
	Mode   string `yaml:"mode" json:"mode"`
	Entry  string `yaml:"entry" json:"entry"`
	Output struct {
		Filename string `yaml:"filename" json:"filename"`
		Path     string `yaml:"path" json:"path"`
	} `yaml:"output" json:"output"`
	Module struct {
		Rules []RuleDocument `yaml:"rules" json:"rules"`
	} `yaml:"module" json:"module"`
	DevServer struct {
		ContentBase string `yaml:"contentBase" json:"contentBase"`
		Overlay     bool   `yaml:"overlay" json:"overlay"`
		Hot         bool   `yaml:"hot" json:"hot"`
	} `yaml:"devServer" json:"devServer"`
	Plugins []PluginDocument `yaml:"plugins" json:"plugins"`
}

// RuleDocument is a serialized Rule.
type RuleDocument struct {
	Test    string `yaml:"test" json:"test"`
	Exclude string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// PluginDocument is a serialized Plugin.
type PluginDocument struct {
	Kind     string   `yaml:"kind" json:"kind"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// LoadBundle reads a YAML bundle file. A relative output.path resolves
// against the file's directory, which also becomes the project directory.
func LoadBundle(path string) (Bundle, error) {
	// #nosec G304 -- the bundle file path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle file: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Bundle{}, fmt.Errorf("resolve bundle dir: %w", err)
	}
	return ParseBundle(data, dir)
}

// ParseBundle decodes a YAML bundle document rooted at projectDir.
func ParseBundle(data []byte, projectDir string) (Bundle, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Bundle{}, fmt.Errorf("%w: empty bundle document", ErrInvalidBundle)
		}
		return Bundle{}, fmt.Errorf("parse bundle: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Bundle{}, errors.New("parse bundle: multiple documents or trailing content")
	}
	return doc.Bundle(projectDir)
}

// Bundle converts the document into a validated Bundle.
func (d Document) Bundle(projectDir string) (Bundle, error) {
	b := Bundle{
		projectDir: filepath.Clean(projectDir),
		mode:       Mode(d.Mode),
		entry:      d.Entry,
		output:     Output{filename: d.Output.Filename, path: d.Output.Path},
		devServer: DevServer{
			contentBase: d.DevServer.ContentBase,
			overlay:     d.DevServer.Overlay,
			hot:         d.DevServer.Hot,
		},
	}
	if b.output.path != "" && !filepath.IsAbs(b.output.path) {
		b.output.path = filepath.Join(b.projectDir, b.output.path)
	}
	for i, rd := range d.Module.Rules {
		r, err := NewRule(rd.Test, rd.Exclude)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: module.rules[%d]: %w", ErrInvalidBundle, i, err)
		}
		b.rules = append(b.rules, r)
	}
	for _, pd := range d.Plugins {
		b.plugins = append(b.plugins, Plugin{kind: PluginKind(pd.Kind), patterns: append([]string(nil), pd.Patterns...)})
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// Document returns the serialized form of b.
func (b Bundle) Document() Document {
	var d Document
	d.Mode = string(b.mode)
	d.Entry = b.entry
	d.Output.Filename = b.output.filename
	d.Output.Path = b.output.path
	d.Module.Rules = make([]RuleDocument, 0, len(b.rules))
	for _, r := range b.rules {
		d.Module.Rules = append(d.Module.Rules, RuleDocument{Test: r.test, Exclude: r.exclude})
	}
	d.DevServer.ContentBase = b.devServer.contentBase
	d.DevServer.Overlay = b.devServer.overlay
	d.DevServer.Hot = b.devServer.hot
	d.Plugins = make([]PluginDocument, 0, len(b.plugins))
	for _, p := range b.plugins {
		d.Plugins = append(d.Plugins, PluginDocument{Kind: string(p.kind), Patterns: p.Patterns()})
	}
	return d
}

// MarshalJSON encodes the bundle in its document form.
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Document())
}

// MarshalYAML encodes the bundle in its document form.
func (b Bundle) MarshalYAML() (any, error) {
	return b.Document(), nil
}
