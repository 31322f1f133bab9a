package signature

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	vectorURIPrefix = "data:image/svg+xml;utf8,"
	rasterURIPrefix = "data:"

	strokeColor = "#1f2a3d"
	strokeWidth = "2.4"
)

// URIKind classifies a signature data URI.
type URIKind int

const (
	KindUnknown URIKind = iota
	// KindVector marks a percent-encoded SVG produced by RenderDataURI.
	KindVector
	// KindRaster marks a base64-embedded imported image.
	KindRaster
)

// Kind reports how a rendering component should interpret the URI: via a
// vector interpreter or a raster image loader.
func Kind(uri string) URIKind {
	if strings.HasPrefix(uri, vectorURIPrefix) {
		return KindVector
	}
	if strings.HasPrefix(uri, rasterURIPrefix) && strings.Contains(uri, ";base64,") {
		return KindRaster
	}
	return KindUnknown
}

// RenderSVG wraps smoothed stroke paths into a minimal self-contained SVG:
// white background sized to the capture pad, every stroke drawn with the
// single dark pen style.
func RenderSVG(paths []string, width, height float64) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		coord(width), coord(height), coord(width), coord(height))
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>`)
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		fmt.Fprintf(&b,
			`<path d="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linecap="round" stroke-linejoin="round"/>`,
			path, strokeColor, strokeWidth)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

// RenderDataURI percent-encodes the SVG markup into the self-describing
// URI form, the only persisted representation of a hand-drawn signature.
func RenderDataURI(paths []string, width, height float64) string {
	return vectorURIPrefix + url.PathEscape(RenderSVG(paths, width, height))
}

// ExtractSVG recovers the SVG markup from a vector data URI. It reports
// false for raster or malformed URIs.
func ExtractSVG(uri string) (string, bool) {
	if !strings.HasPrefix(uri, vectorURIPrefix) {
		return "", false
	}
	decoded, err := url.PathUnescape(strings.TrimPrefix(uri, vectorURIPrefix))
	if err != nil {
		return "", false
	}
	return decoded, true
}

// RasterDataURI builds the URI form for an imported base64-encoded image.
func RasterDataURI(mimeType, base64Data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}
