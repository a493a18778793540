package query

import "strings"

const (
	metadataMarker = "$metadata"
	servicePathEnd = ".svc"
)

// MetadataURL derives the metadata document URL from a service or data URL.
// URLs already ending in $metadata are returned unchanged. Otherwise the
// marker is spliced in right after a ".svc" path segment when there is one,
// or appended to the URL with its trailing slash removed. Query strings and
// fragments are dropped first.
func MetadataURL(serviceURL string) string {
	u := strings.TrimSpace(serviceURL)
	if strings.HasSuffix(u, metadataMarker) {
		return u
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
		if strings.HasSuffix(u, metadataMarker) {
			return u
		}
	}

	for from := 0; ; {
		i := strings.Index(u[from:], servicePathEnd)
		if i < 0 {
			break
		}
		end := from + i + len(servicePathEnd)
		if end == len(u) || u[end] == '/' {
			return u[:end] + "/" + metadataMarker
		}
		from = end
	}

	return strings.TrimRight(u, "/") + "/" + metadataMarker
}

// ServiceRoot returns the service root of a metadata or data URL: the part
// before /$metadata, or before the entity set following ".svc".
func ServiceRoot(serviceURL string) string {
	meta := MetadataURL(serviceURL)
	return strings.TrimSuffix(strings.TrimSuffix(meta, metadataMarker), "/")
}
