// Package fs serves static files. A file is transmitted in chunks, one per handler
// invocation, so serving a big file never blocks the connection and never needs more
// memory than a single chunk.
package fs

import (
	"io"
	iofs "io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/indigo-web/ahttpd/config"
	"github.com/indigo-web/ahttpd/http"
	"github.com/indigo-web/ahttpd/http/method"
	"github.com/indigo-web/ahttpd/http/mime"
	"github.com/indigo-web/ahttpd/http/status"
	"github.com/indigo-web/ahttpd/router"
	"github.com/indigo-web/utils/strcomp"
)

const (
	gzipSuffix = ".gz"
	indexFile  = "index.html"
)

type Option func(*Handler)

// WithNotImplemented replaces the handler responding to clients, which don't accept
// a file stored gzipped only.
func WithNotImplemented(handler http.Handler) Option {
	return func(h *Handler) {
		h.notImplemented = handler
	}
}

// WithMIME adds resolvers, which are asked before the built-in extensions table.
func WithMIME(resolvers ...mime.Resolver) Option {
	return func(h *Handler) {
		h.mime = mime.Chain(resolvers...)
	}
}

func WithChunkSize(size int) Option {
	return func(h *Handler) {
		if size > 0 {
			h.chunkSize = size
		}
	}
}

// WithConfig applies the chunk size and the cache control settings.
func WithConfig(cfg config.Static) Option {
	return func(h *Handler) {
		if cfg.ChunkSize > 0 {
			h.chunkSize = cfg.ChunkSize
		}

		h.cacheControl = cfg.CacheControl
	}
}

// Handler serves files from the file system, looking them up by the request path.
type Handler struct {
	fsys           iofs.FS
	notImplemented http.Handler
	mime           func(ext string) mime.MIME
	chunkSize      int
	cacheControl   string
}

func New(fsys iofs.FS, opts ...Option) *Handler {
	defaults := config.Default().Static
	h := &Handler{
		fsys:           fsys,
		notImplemented: NotImplemented,
		mime:           mime.Lookup,
		chunkSize:      defaults.ChunkSize,
		cacheControl:   defaults.CacheControl,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Route serves the file system under the URL. The URL usually ends with '*'.
func Route(url string, fsys iofs.FS, opts ...Option) router.Route {
	return router.Route{
		Method:  method.GET,
		URL:     url,
		Handler: New(fsys, opts...).Handle,
	}
}

// cursor is the progress of a file transmission. It's kept in the request's Data,
// therefore the file is closed together with the connection.
type cursor struct {
	file iofs.File
	buff []byte
}

func (c *cursor) Close() error {
	return c.file.Close()
}

// Handle starts the response on the first invocation and sends a single chunk of the
// file on every following one. Returns http.NotFound if there's no such file.
func (h *Handler) Handle(req *http.Request) http.Status {
	if cur, ok := req.Data.(*cursor); ok {
		return h.next(req, cur)
	}

	file, name, gzipped := h.open(req.Path())
	if file == nil {
		return http.NotFound
	}

	if gzipped && !acceptsGzip(req) {
		_ = file.Close()
		req.Handler = h.notImplemented
		return h.notImplemented(req)
	}

	req.StartResponse(status.OK)
	req.SendHeader("Content-Type", h.mime(path.Ext(name)))

	if stat, err := file.Stat(); err == nil {
		req.SendHeader("Content-Length", strconv.FormatInt(stat.Size(), 10))
	}

	if len(h.cacheControl) > 0 {
		req.SendHeader("Cache-Control", h.cacheControl)
	}

	if gzipped {
		req.SendHeader("Content-Encoding", "gzip")
	}

	req.EndHeaders()

	if req.Method == method.HEAD {
		_ = file.Close()
		return http.Done
	}

	req.Data = &cursor{
		file: file,
		buff: make([]byte, h.chunkSize),
	}

	return http.More
}

func (h *Handler) next(req *http.Request, cur *cursor) http.Status {
	n, err := io.ReadFull(cur.file, cur.buff)
	if n > 0 {
		req.Send(cur.buff[:n])
	}

	if err != nil {
		// io.EOF or io.ErrUnexpectedEOF mean the file is over, any other error is
		// unrecoverable anyway
		return http.Done
	}

	return http.More
}

// open looks up the file by the request path. The name is the requested one, without
// the gzip suffix.
func (h *Handler) open(urlPath string) (file iofs.File, name string, gzipped bool) {
	name = strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if len(name) == 0 {
		name = "."
	}

	candidates := [...]string{
		name,
		path.Join(name, indexFile),
	}

	for _, candidate := range candidates {
		if file = h.openRegular(candidate); file != nil {
			return file, candidate, false
		}

		if file = h.openRegular(candidate + gzipSuffix); file != nil {
			return file, candidate, true
		}
	}

	return nil, "", false
}

func (h *Handler) openRegular(name string) iofs.File {
	if !iofs.ValidPath(name) {
		return nil
	}

	file, err := h.fsys.Open(name)
	if err != nil {
		return nil
	}

	stat, err := file.Stat()
	if err != nil || !stat.Mode().IsRegular() {
		_ = file.Close()
		return nil
	}

	return file
}

func acceptsGzip(req *http.Request) bool {
	for node := req.Headers; node != nil; node = node.Next {
		if !strcomp.EqualFold(node.Name, "Accept-Encoding") {
			continue
		}

		for _, coding := range strings.Split(node.Value, ",") {
			coding, _, _ = strings.Cut(coding, ";")
			if strcomp.EqualFold(strings.TrimSpace(coding), "gzip") {
				return true
			}
		}
	}

	return false
}

// NotImplemented is the default response for clients not accepting gzip.
func NotImplemented(req *http.Request) http.Status {
	req.StartResponse(status.NotImplemented)
	req.SendHeader("Server", "AHTTPD/1.0")
	req.EndHeaders()
	req.SendString("Gzip not supported by client")

	return http.Done
}
