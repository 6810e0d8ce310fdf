// SPDX-License-Identifier: MIT

package webui

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	xglog "github.com/homanchou/heatercontrol/internal/log"
	"github.com/homanchou/heatercontrol/internal/metrics"
	"golang.org/x/text/unicode/norm"
)

// DefaultETagCacheSize bounds the number of cached file digests.
const DefaultETagCacheSize = 256

const indexFile = "index.html"

// HandlerOptions tunes NewHandler.
type HandlerOptions struct {
	// ETagCacheSize bounds cached digests. Zero means DefaultETagCacheSize.
	ETagCacheSize int
	// SPAFallback serves index.html for extension-less paths that do not exist.
	SPAFallback bool
}

// Handler serves the bundle's content directory.
type Handler struct {
	bundle Bundle
	root   string
	opts   HandlerOptions
	etags  *lru.Cache[string, string]
}

// NewHandler returns a handler serving b.ContentDir().
func NewHandler(b Bundle, opts HandlerOptions) (*Handler, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if opts.ETagCacheSize <= 0 {
		opts.ETagCacheSize = DefaultETagCacheSize
	}
	cache, err := lru.New[string, string](opts.ETagCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create etag cache: %w", err)
	}
	return &Handler{bundle: b, root: b.ContentDir(), opts: opts, etags: cache}, nil
}

// Root is the directory being served.
func (h *Handler) Root() string { return h.root }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := xglog.WithComponentFromContext(r.Context(), "webui")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.fail(w, r, http.StatusMethodNotAllowed, "method not allowed", "forbidden")
		return
	}

	reqPath := r.URL.Path
	if isPathTraversal(reqPath) {
		logger.Warn().Str("event", "webui.denied").Str(xglog.FieldPath, reqPath).Str("reason", "path_escape").Msg("detected traversal sequence")
		h.fail(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	clean := path.Clean("/" + reqPath)
	if h.bundle.IsExcluded(clean) {
		logger.Warn().Str("event", "webui.denied").Str(xglog.FieldPath, reqPath).Str("reason", "excluded").Msg("request for excluded path")
		h.fail(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	// Extensionless routes fall back to the SPA; judge by the requested
	// path, not the directory index it maps to.
	route := clean
	if strings.HasSuffix(reqPath, "/") {
		clean = path.Join(clean, indexFile)
	}

	realPath, info, err := h.resolve(clean)
	result := "served"
	if errors.Is(err, os.ErrNotExist) && h.opts.SPAFallback && path.Ext(route) == "" {
		realPath, info, err = h.resolve("/" + indexFile)
		result = "fallback"
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		h.fail(w, r, http.StatusNotFound, fmt.Sprintf("%s not found in %s", clean, h.bundle.DevServer().ContentBase()), "not_found")
		return
	case errors.Is(err, errEscape), errors.Is(err, errDirectory):
		logger.Warn().Str("event", "webui.denied").Str(xglog.FieldPath, reqPath).Err(err).Msg("refused asset request")
		h.fail(w, r, http.StatusForbidden, "forbidden", "forbidden")
		return
	case err != nil:
		logger.Error().Err(err).Str("event", "webui.internal_error").Str(xglog.FieldPath, reqPath).Msg("could not resolve asset")
		h.fail(w, r, http.StatusInternalServerError, err.Error(), "error")
		return
	}

	// #nosec G304 -- realPath is contained in the content directory
	f, err := os.Open(realPath)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err.Error(), "error")
		return
	}
	defer func() { _ = f.Close() }()

	etag, err := h.etag(realPath, info, f)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err.Error(), "error")
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", h.cacheControl(info.Name()))

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		metrics.IncAssetRequest("not_modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	metrics.IncAssetRequest(result)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

var (
	errEscape    = errors.New("path escapes content directory")
	errDirectory = errors.New("path is a directory")
)

// resolve maps a cleaned URL path to a regular file inside the root,
// following symlinks only while they stay inside it.
func (h *Handler) resolve(urlPath string) (string, os.FileInfo, error) {
	full := filepath.Join(h.root, filepath.FromSlash(urlPath))
	realPath, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", nil, err
	}
	realRoot, err := filepath.EvalSymlinks(h.root)
	if err != nil {
		return "", nil, err
	}
	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", nil, errEscape
	}
	info, err := os.Stat(realPath)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, errDirectory
	}
	return realPath, info, nil
}

// etag returns a strong validator of the file content. Digests are cached
// per path, size and modification time.
func (h *Handler) etag(realPath string, info os.FileInfo, f io.ReadSeeker) (string, error) {
	key := fmt.Sprintf("%s|%d|%d", realPath, info.Size(), info.ModTime().UnixNano())
	if tag, ok := h.etags.Get(key); ok {
		return tag, nil
	}
	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", realPath, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", realPath, err)
	}
	tag := `"` + hex.EncodeToString(sum.Sum(nil))[:32] + `"`
	h.etags.Add(key, tag)
	return tag, nil
}

func (h *Handler) cacheControl(name string) string {
	switch {
	case h.bundle.DevServer().Hot():
		return "no-store"
	case name == indexFile:
		return "no-cache"
	default:
		return "public, max-age=3600"
	}
}

var overlayTmpl = template.Must(template.New("overlay").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Status}} {{.Text}}</title>
<style>body{margin:0;background:rgba(0,0,0,.85);color:#e8e8e8;font-family:Menlo,Consolas,monospace}
main{padding:2em}h1{color:#ff6b6b;font-size:1.2em}pre{white-space:pre-wrap}</style></head>
<body><main><h1>{{.Status}} {{.Text}}</h1><pre>{{.Message}}</pre><p>{{.Time}}</p></main></body></html>
`))

// fail writes an error, as an HTML overlay for browsers when the bundle
// asks for one.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg, result string) {
	metrics.IncAssetRequest(result)
	if h.bundle.DevServer().Overlay() && strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = overlayTmpl.Execute(w, map[string]any{
			"Status":  status,
			"Text":    http.StatusText(status),
			"Message": msg,
			"Time":    time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	http.Error(w, http.StatusText(status), status)
}

// isPathTraversal decodes p a few times, normalizes it and looks for
// parent references and NUL bytes.
func isPathTraversal(p string) bool {
	decoded := p
	for range 3 {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		} else if d2, err2 := url.QueryUnescape(decoded); err2 == nil {
			decoded = d2
		}
		if decoded == prev {
			break
		}
	}

	lower := strings.ToLower(decoded)
	for _, pat := range []string{"..", "%00", "%c0%ae", "%e0%80%ae"} {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}
	return strings.Contains(norm.NFKC.String(decoded), "..")
}
