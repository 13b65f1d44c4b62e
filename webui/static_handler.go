package webui

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"diagramgen/webui/static"
)

// StaticAssetHandler serves the embedded UI assets.
type StaticAssetHandler struct {
	fs          fs.FS
	prefix      string
	indexFile   string
	cacheMaxAge int
}

// NewStaticAssetHandler serves the embedded assets under prefix. A
// cacheMaxAge of 0 disables caching.
func NewStaticAssetHandler(prefix string, cacheMaxAge int) *StaticAssetHandler {
	return NewStaticAssetHandlerWithFS(static.GetFS(), prefix, cacheMaxAge)
}

// NewStaticAssetHandlerWithFS serves fsys instead of the embedded assets.
func NewStaticAssetHandlerWithFS(fsys fs.FS, prefix string, cacheMaxAge int) *StaticAssetHandler {
	return &StaticAssetHandler{
		fs:          fsys,
		prefix:      strings.TrimSuffix(prefix, "/"),
		indexFile:   "index.html",
		cacheMaxAge: cacheMaxAge,
	}
}

func (h *StaticAssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, h.prefix)
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" || name == "." {
		name = h.indexFile
	}

	data, err := fs.ReadFile(h.fs, name)
	if err != nil {
		// directories fall back to their index
		data, err = fs.ReadFile(h.fs, path.Join(name, h.indexFile))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		name = path.Join(name, h.indexFile)
	}

	w.Header().Set("Content-Type", contentType(name))
	if h.cacheMaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.cacheMaxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}

// ServeIndex serves index.html for exactly "/" and 404s any other path.
func (h *StaticAssetHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := fs.ReadFile(h.fs, h.indexFile)
	if err != nil {
		http.Error(w, "index not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
