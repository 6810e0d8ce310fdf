// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/homanchou/heatercontrol/internal/webui"
)

func runBundleCLI(args []string) int {
	return bundleCLI(context.Background(), args, os.Stdout, os.Stderr)
}

func printBundleUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  heaterd bundle show [--dir project] [--file bundle.yaml] [--format=yaml|json]")
	fmt.Fprintln(w, "  heaterd bundle copy [--dir project] [--file bundle.yaml] [--src dir]")
}

func bundleCLI(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printBundleUsage(stderr)
		return 0
	}
	sub := args[0]
	if sub != "show" && sub != "copy" {
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", sub)
		printBundleUsage(stderr)
		return 2
	}

	fs := flag.NewFlagSet("heaterd bundle "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", ".", "web UI project directory")
	file := fs.String("file", "", "bundle description file (overrides --dir)")
	format := fs.String("format", "yaml", "output format for show: yaml or json")
	src := fs.String("src", "", "source directory for copy patterns (default: project directory)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	var (
		b   webui.Bundle
		err error
	)
	if *file != "" {
		b, err = webui.LoadBundle(*file)
	} else {
		b, err = webui.NewBundle(*dir)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Bundle error: %v\n", err)
		return 1
	}

	if sub == "copy" {
		copied, err := webui.CopyFiles(ctx, b, *src)
		if err != nil {
			fmt.Fprintf(stderr, "Copy failed: %v\n", err)
			return 1
		}
		for _, p := range copied {
			fmt.Fprintln(stdout, p)
		}
		return 0
	}

	switch strings.ToLower(*format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}
	return 0
}
