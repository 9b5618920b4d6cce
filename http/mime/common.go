package mime

type MIME = string

const (
	OctetStream MIME = "application/octet-stream"
	Plain       MIME = "text/plain"
	HTML        MIME = "text/html"
	XML         MIME = "text/xml"
	JSON        MIME = "application/json"
	PDF         MIME = "application/pdf"
	ZIP         MIME = "application/zip"
	GZIP        MIME = "application/gzip"
	CSS         MIME = "text/css"
	GIF         MIME = "image/gif"
	JPEG        MIME = "image/jpeg"
	PNG         MIME = "image/png"
	SVG         MIME = "image/svg+xml"
	ICO         MIME = "image/vnd.microsoft.icon"
	WEBP        MIME = "image/webp"
	JS          MIME = "text/javascript"
	WASM        MIME = "application/wasm"
	WOFF2       MIME = "font/woff2"
	MANIFEST    MIME = "application/manifest+json"
)
