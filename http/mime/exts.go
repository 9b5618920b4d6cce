package mime

import "strings"

// Extension maps a lowercase file extension, including the leading dot, to its MIME.
var Extension = map[string]MIME{
	".css":         CSS,
	".gif":         GIF,
	".htm":         HTML,
	".html":        HTML,
	".ico":         ICO,
	".jpeg":        JPEG,
	".jpg":         JPEG,
	".js":          JS,
	".mjs":         JS,
	".json":        JSON,
	".pdf":         PDF,
	".png":         PNG,
	".svg":         SVG,
	".txt":         Plain,
	".wasm":        WASM,
	".webp":        WEBP,
	".webmanifest": MANIFEST,
	".woff2":       WOFF2,
	".xml":         XML,
	".gz":          GZIP,
	".zip":         ZIP,
}

// Lookup returns the MIME of the extension, falling back to OctetStream.
func Lookup(ext string) MIME {
	if mime, ok := Extension[ext]; ok {
		return mime
	}

	if mime, ok := Extension[strings.ToLower(ext)]; ok {
		return mime
	}

	return OctetStream
}

// Resolver returns a MIME for the extension. An empty result means the resolver has
// no opinion about the extension.
type Resolver func(ext string) MIME

// Chain returns a lookup function, which asks the overrides in order first and falls
// back to the built-in table.
func Chain(overrides ...Resolver) func(ext string) MIME {
	return func(ext string) MIME {
		for _, override := range overrides {
			if override == nil {
				continue
			}

			if mime := override(ext); len(mime) > 0 {
				return mime
			}
		}

		return Lookup(ext)
	}
}
