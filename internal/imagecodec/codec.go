// Package imagecodec converts uploaded binary images into self-describing
// data URIs suitable for a text column, and maintains the JSON-encoded list
// of such URIs persisted on a delivery record.
package imagecodec

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// Encode produces a data URI embedding the MIME type and the base64 encoding
// of the raw bytes. An empty mimeType is sniffed from the content.
func Encode(raw []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
	}
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(raw))
	return b.String()
}

// DecodeList decodes the stored JSON array of encoded images. A missing or
// corrupt value yields an empty list, never an error: image data is
// non-critical metadata next to the core delivery fields.
func DecodeList(stored string) []string {
	if stored == "" {
		return []string{}
	}
	var images []string
	if err := json.Unmarshal([]byte(stored), &images); err != nil {
		return []string{}
	}
	if images == nil {
		return []string{}
	}
	return images
}

// EncodeList is the inverse of DecodeList. A nil list clears the field.
func EncodeList(images []string) string {
	if images == nil {
		return ""
	}
	data, err := json.Marshal(images)
	if err != nil {
		// []string cannot fail to marshal; keep the field consistent anyway
		return ""
	}
	return string(data)
}
