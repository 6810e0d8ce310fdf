// SPDX-License-Identifier: MIT

package webui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/homanchou/heatercontrol/internal/metrics"
	"github.com/google/renameio/v2"
)

// ErrNoMatch is returned when a copy pattern matches no file.
var ErrNoMatch = errors.New("copy pattern matched no files")

// CopyFiles runs the bundle's copy plugins: every file matching a pattern
// under srcDir is written to the same relative location under the output
// path. Each file is replaced atomically. It returns the written paths.
//
// An empty srcDir means the bundle's project directory.
func CopyFiles(ctx context.Context, b Bundle, srcDir string) ([]string, error) {
	if srcDir == "" {
		srcDir = b.ProjectDir()
	}
	logger := xglog.WithComponentFromContext(ctx, "webui")

	var written []string
	for _, p := range b.Plugins() {
		if p.Kind() != PluginCopy {
			continue
		}
		for _, pattern := range p.Patterns() {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			if !filepath.IsLocal(pattern) {
				return written, fmt.Errorf("copy pattern %q escapes the project directory", pattern)
			}
			matches, err := filepath.Glob(filepath.Join(srcDir, pattern))
			if err != nil {
				return written, fmt.Errorf("copy pattern %q: %w", pattern, err)
			}
			n := 0
			for _, src := range matches {
				info, err := os.Stat(src)
				if err != nil {
					return written, fmt.Errorf("stat %s: %w", src, err)
				}
				if info.IsDir() {
					continue
				}
				rel, err := filepath.Rel(srcDir, src)
				if err != nil {
					return written, fmt.Errorf("relativize %s: %w", src, err)
				}
				if b.IsExcluded(filepath.ToSlash(rel)) {
					continue
				}
				dst := filepath.Join(b.Output().Path(), rel)
				err = copyFile(src, dst, info.Mode().Perm())
				metrics.IncAssetCopy(err)
				if err != nil {
					return written, err
				}
				logger.Debug().
					Str("event", "webui.copied").
					Str(xglog.FieldPath, dst).
					Msg("copied asset")
				written = append(written, dst)
				n++
			}
			if n == 0 {
				return written, fmt.Errorf("%w: %q in %s", ErrNoMatch, pattern, srcDir)
			}
		}
	}

	logger.Info().
		Str("event", "webui.copy_done").
		Int("files", len(written)).
		Str("output", b.Output().Path()).
		Msg("copied static assets into bundle output")
	return written, nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}

	// #nosec G304 -- src comes from globbing inside the project directory
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	pending, err := renameio.NewPendingFile(dst, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", dst, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}
