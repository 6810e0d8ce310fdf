// SPDX-License-Identifier: MIT

// Package webui describes the web UI bundle and serves its emitted output.
//
// A Bundle mirrors the bundler configuration of the UI project. It is built
// once at startup, never mutated, and read by the asset handler, the copy
// step and the /api/bundle endpoint.
package webui

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Mode is the build profile.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeNone        Mode = "none"
)

// PluginKind names a bundler plugin.
type PluginKind string

const (
	PluginCopy                 PluginKind = "copy"
	PluginHotModuleReplacement PluginKind = "hot-module-replacement"
)

// NamePlaceholder is substituted with the chunk name in output filenames.
const NamePlaceholder = "[name]"

// DefaultChunkName is the chunk name of a single unnamed entry.
const DefaultChunkName = "main"

// DependencyDir is the conventional third-party module directory.
const DependencyDir = "node_modules"

// ErrInvalidBundle wraps every Validate failure.
var ErrInvalidBundle = errors.New("invalid bundle")

// Rule selects modules for a loader: a path matches when Test matches and
// Exclude, if set, does not.
type Rule struct {
	test    string
	exclude string
	testRe  *regexp.Regexp
	exclRe  *regexp.Regexp
}

// NewRule compiles a rule. exclude may be empty.
func NewRule(test, exclude string) (Rule, error) {
	r := Rule{test: test, exclude: exclude}
	var err error
	if r.testRe, err = regexp.Compile(test); err != nil {
		return Rule{}, fmt.Errorf("rule test %q: %w", test, err)
	}
	if exclude != "" {
		if r.exclRe, err = regexp.Compile(exclude); err != nil {
			return Rule{}, fmt.Errorf("rule exclude %q: %w", exclude, err)
		}
	}
	return r, nil
}

func (r Rule) Test() string    { return r.test }
func (r Rule) Exclude() string { return r.exclude }

// Matches reports whether the rule applies to path.
func (r Rule) Matches(path string) bool {
	if r.testRe == nil || !r.testRe.MatchString(path) {
		return false
	}
	return !r.Excludes(path)
}

// Excludes reports whether path is carved out by the rule's exclusion.
func (r Rule) Excludes(path string) bool {
	return r.exclRe != nil && r.exclRe.MatchString(path)
}

// Output is where the bundle is emitted.
type Output struct {
	filename string
	path     string
}

func (o Output) Filename() string { return o.filename }
func (o Output) Path() string     { return o.path }

// DevServer holds the preview server options.
type DevServer struct {
	contentBase string
	overlay     bool
	hot         bool
}

func (d DevServer) ContentBase() string { return d.contentBase }

// Overlay reports whether errors are shown as an HTML page in the browser.
func (d DevServer) Overlay() bool { return d.overlay }

// Hot reports whether hot module replacement is on. Assets are then served
// uncached.
func (d DevServer) Hot() bool { return d.hot }

// Plugin is one plugin instance. Only copy plugins carry patterns.
type Plugin struct {
	kind     PluginKind
	patterns []string
}

func (p Plugin) Kind() PluginKind { return p.kind }

// Patterns returns a copy of the plugin's file patterns.
func (p Plugin) Patterns() []string { return slices.Clone(p.patterns) }

// CopyPlugin returns a copy plugin for patterns.
func CopyPlugin(patterns ...string) Plugin {
	return Plugin{kind: PluginCopy, patterns: slices.Clone(patterns)}
}

// HotModuleReplacementPlugin returns the HMR plugin.
func HotModuleReplacementPlugin() Plugin {
	return Plugin{kind: PluginHotModuleReplacement}
}

// Bundle is the immutable bundle description. The zero value is invalid;
// use NewBundle or LoadBundle.
type Bundle struct {
	projectDir string
	mode       Mode
	entry      string
	output     Output
	rules      []Rule
	devServer  DevServer
	plugins    []Plugin
}

// NewBundle returns the UI project's bundle rooted at configDir.
func NewBundle(configDir string) (Bundle, error) {
	dir, err := filepath.Abs(configDir)
	if err != nil {
		return Bundle{}, fmt.Errorf("resolve config dir: %w", err)
	}
	jsRule, err := NewRule(`\.js$`, DependencyDir)
	if err != nil {
		return Bundle{}, err
	}
	b := Bundle{
		projectDir: dir,
		mode:       ModeDevelopment,
		entry:      "./src/Index.bs.js",
		output: Output{
			filename: "[name].bundle.js",
			path:     filepath.Join(dir, "dist"),
		},
		rules: []Rule{jsRule},
		devServer: DevServer{
			contentBase: "./dist",
			overlay:     true,
			hot:         true,
		},
		plugins: []Plugin{
			CopyPlugin("index.html"),
			HotModuleReplacementPlugin(),
		},
	}
	return b, b.Validate()
}

func (b Bundle) ProjectDir() string   { return b.projectDir }
func (b Bundle) Mode() Mode           { return b.mode }
func (b Bundle) Entry() string        { return b.entry }
func (b Bundle) Output() Output       { return b.output }
func (b Bundle) DevServer() DevServer { return b.devServer }

// Rules returns a copy of the loader rules in order.
func (b Bundle) Rules() []Rule { return slices.Clone(b.rules) }

// Plugins returns a copy of the plugins in order.
func (b Bundle) Plugins() []Plugin {
	out := make([]Plugin, len(b.plugins))
	for i, p := range b.plugins {
		out[i] = Plugin{kind: p.kind, patterns: slices.Clone(p.patterns)}
	}
	return out
}

// Plugin returns the first plugin of kind.
func (b Bundle) Plugin(kind PluginKind) (Plugin, bool) {
	for _, p := range b.Plugins() {
		if p.kind == kind {
			return p, true
		}
	}
	return Plugin{}, false
}

// ContentDir is the absolute directory the dev server serves.
func (b Bundle) ContentDir() string {
	if filepath.IsAbs(b.devServer.contentBase) {
		return filepath.Clean(b.devServer.contentBase)
	}
	return filepath.Join(b.projectDir, b.devServer.contentBase)
}

// OutputFile expands the filename template for chunk name.
func (b Bundle) OutputFile(name string) string {
	if name == "" {
		name = DefaultChunkName
	}
	return filepath.Join(b.output.path, strings.ReplaceAll(b.output.filename, NamePlaceholder, name))
}

// IsExcluded reports whether any rule's exclusion matches path.
func (b Bundle) IsExcluded(path string) bool {
	for _, r := range b.rules {
		if r.Excludes(path) {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of the bundle.
func (b Bundle) Validate() error {
	var errs []error

	switch b.mode {
	case ModeDevelopment, ModeProduction, ModeNone:
	default:
		errs = append(errs, fmt.Errorf("mode %q must be one of development, production, none", b.mode))
	}
	if strings.TrimSpace(b.entry) == "" {
		errs = append(errs, errors.New("entry is empty"))
	}
	if !strings.Contains(b.output.filename, NamePlaceholder) {
		errs = append(errs, fmt.Errorf("output.filename %q lacks %s", b.output.filename, NamePlaceholder))
	}
	if !filepath.IsAbs(b.output.path) {
		errs = append(errs, fmt.Errorf("output.path %q is not absolute", b.output.path))
	}

	depRules := 0
	for i, r := range b.rules {
		if r.testRe == nil {
			errs = append(errs, fmt.Errorf("module.rules[%d] has no test", i))
		}
		if r.Excludes(DependencyDir) {
			depRules++
		}
	}
	if depRules != 1 {
		errs = append(errs, fmt.Errorf("want exactly one rule excluding %s, got %d", DependencyDir, depRules))
	}

	if len(b.plugins) == 0 {
		errs = append(errs, errors.New("plugins is empty"))
	}
	seen := make(map[PluginKind]bool, len(b.plugins))
	for i, p := range b.plugins {
		switch p.kind {
		case PluginCopy:
			if len(p.patterns) == 0 {
				errs = append(errs, fmt.Errorf("plugins[%d]: copy plugin has no patterns", i))
			}
		case PluginHotModuleReplacement:
		default:
			errs = append(errs, fmt.Errorf("plugins[%d]: unknown kind %q", i, p.kind))
		}
		if seen[p.kind] {
			errs = append(errs, fmt.Errorf("plugins[%d]: duplicate %s plugin", i, p.kind))
		}
		seen[p.kind] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidBundle, errors.Join(errs...))
	}
	return nil
}
