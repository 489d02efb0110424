package model

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"strings"
)

// MaxPageSize is the largest document body read, in bytes.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// Page is a fetched or loaded document before it is parsed.
type Page struct {
	// URL is the page URL; for local files it is a file:// URL or empty.
	URL string `json:"url"`

	// StatusCode is the HTTP status, zero for local files.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the MIME type of the body.
	ContentType string `json:"content_type,omitempty"`

	// Raw is the document body, at most MaxPageSize bytes.
	Raw []byte `json:"-"`

	// Truncated is set when the body was cut at MaxPageSize.
	Truncated bool `json:"truncated,omitempty"`

	// Hash is the SHA-256 of Raw.
	Hash string `json:"hash"`
}

// NewPage creates a page and computes its hash.
func NewPage(url string, raw []byte) *Page {
	p := &Page{URL: url, Raw: raw}
	p.ComputeHash()
	return p
}

// ComputeHash sets Hash from Raw.
func (p *Page) ComputeHash() {
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// IsHTML reports whether the page is an HTML document. A page without a
// content type is assumed to be HTML.
func (p *Page) IsHTML() bool {
	if p.ContentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		return strings.Contains(strings.ToLower(p.ContentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
