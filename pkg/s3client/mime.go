package s3client

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// videoTypes covers containers the system mime table often lacks
var videoTypes = map[string]string{
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".webm": "video/webm",
	".wmv":  "video/x-ms-wmv",
}

func guessContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType, ok := videoTypes[ext]; ok {
		return contentType
	}

	if ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}

	mtype, err := mimetype.DetectFile(filename)
	if err != nil {
		return ""
	}
	return mtype.String()
}
