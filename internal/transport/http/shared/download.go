package shared

import (
	"mime"
	"net/http"
)

// SetDownload marks the response as a file download named filename.
func SetDownload(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}
