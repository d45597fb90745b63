package media

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// Common audio/video suffixes; fallback handled via Content-Type guess.
var supportedMediaSuffixes = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".ogg":  {},
	".m4a":  {},
	".mpga": {},
	".aac":  {},
	".opus": {},
	".hevc": {},
	".mov":  {},
	".mkv":  {},
	".avi":  {},
}

// Resolver rewrites external object-store URLs to the endpoint reachable from
// this process. A presigned URL handed out for browser consumption often
// points at a public host; inside the deployment the store is reached under a
// different name.
type Resolver struct {
	// InternalEndpoint is the host[:port] substituted in, e.g. "minio:9000".
	InternalEndpoint string
	// RewritePort identifies object-store URLs by port. Zero disables rewriting.
	RewritePort int
}

// Resolve returns the URL rewritten to the internal endpoint when it matches
// the configured object-store port, otherwise the input unchanged.
func (r Resolver) Resolve(raw string) string {
	if raw == "" || r.InternalEndpoint == "" || r.RewritePort == 0 {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if portOf(parsed) != r.RewritePort {
		return raw
	}
	parsed.Host = r.InternalEndpoint
	return parsed.String()
}

func portOf(u *url.URL) int {
	port := u.Port()
	if port == "" {
		return 0
	}
	n := 0
	for _, r := range port {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// InferSuffix determines a media file suffix from the URL path, common query
// parameters, or the Content-Type header, in that order. Unknown types fall
// back to a container matching the declared type class, or ".bin".
func InferSuffix(rawURL, contentType string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = &url.URL{}
	}

	if suffix := strings.ToLower(path.Ext(parsed.Path)); suffix != "" {
		if _, ok := supportedMediaSuffixes[suffix]; ok {
			return suffix
		}
	}

	query := parsed.Query()
	for _, key := range []string{"prefix", "filename", "name", "file", "key"} {
		if value := query.Get(key); value != "" {
			if suffix := strings.ToLower(path.Ext(value)); suffix != "" {
				if _, ok := supportedMediaSuffixes[suffix]; ok {
					return suffix
				}
			}
		}
	}

	mediaType := normalizeContentType(contentType)
	if mediaType != "" {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil {
			for _, ext := range exts {
				if _, ok := supportedMediaSuffixes[strings.ToLower(ext)]; ok {
					return strings.ToLower(ext)
				}
			}
		}
		if strings.HasPrefix(mediaType, "video/") {
			return ".mp4"
		}
		if strings.HasPrefix(mediaType, "audio/") {
			return ".mp3"
		}
	}

	return ".bin"
}

// IsAudioVideo reports whether the declared Content-Type (preferred) or the
// file name extension indicates audio or video content.
func IsAudioVideo(name, contentType string) bool {
	mediaType := normalizeContentType(contentType)
	if mediaType == "" {
		mediaType = mime.TypeByExtension(strings.ToLower(path.Ext(name)))
		if idx := strings.Index(mediaType, ";"); idx >= 0 {
			mediaType = mediaType[:idx]
		}
	}
	return strings.HasPrefix(mediaType, "audio/") || strings.HasPrefix(mediaType, "video/")
}

// IsAnimatedImagePath reports whether the locator's path names an animated
// image format that must be routed through still-image moderation.
func IsAnimatedImagePath(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(parsed.Path), ".gif")
}

func normalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
