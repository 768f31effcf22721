package ips

import (
	"bytes"
	"encoding/json"
	"fmt"

	farm "github.com/dgryski/go-farm"

	"github.com/joshuapare/romkit/internal/logger"
)

// Patcher is written into the metadata of patches this package creates.
const Patcher = "romkit"

// Metadata is the optional JSON document after the terminator.
type Metadata struct {
	Patcher      string `json:"patcher"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Description  string `json:"description,omitempty"`
	SourceDigest string `json:"source_digest,omitempty"`
}

// Digest returns the fingerprint recorded as SourceDigest for an image.
func Digest(image []byte) string {
	return fmt.Sprintf("%016x", farm.Fingerprint64(image))
}

// MatchesSource reports whether image is the one the patch was made
// against. Metadata without a digest matches every image.
func (m *Metadata) MatchesSource(image []byte) bool {
	if m == nil || m.SourceDigest == "" {
		return true
	}
	return m.SourceDigest == Digest(image)
}

// parseMetadata returns nil for an absent or unreadable trailer.
func parseMetadata(trailer []byte) *Metadata {
	trailer = bytes.TrimSpace(trailer)
	if len(trailer) == 0 {
		return nil
	}
	var m Metadata
	if err := json.Unmarshal(trailer, &m); err != nil {
		logger.L.Debug("ips: ignoring unreadable metadata", "error", err, "bytes", len(trailer))
		return nil
	}
	return &m
}
