package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentKind namespaces storage keys per content type.
type ContentKind string

const (
	KindNote  ContentKind = "note"
	KindVideo ContentKind = "video"
)

// SanitizeFilename strips directory components and replaces any character
// outside [A-Za-z0-9._-] with an underscore.
func SanitizeFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))

	var b strings.Builder
	b.Grow(len(filename))
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Extension returns the lowercased extension of filename without the dot.
func Extension(filename string) string {
	ext := path.Ext(SanitizeFilename(filename))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// BuildContentKey produces a collision-free storage key grouped by department
// and subject code, e.g. notes/ANAT/ANAT101/<uuid>_<unix>.pdf. Raw video
// uploads land under videos/raw/ so transcoded renditions can live alongside.
func BuildContentKey(kind ContentKind, departmentCode, subjectCode, ext string) string {
	prefix := "notes"
	if kind == KindVideo {
		prefix = "videos/raw"
	}
	return fmt.Sprintf("%s/%s/%s/%s_%d.%s",
		prefix,
		strings.ToUpper(departmentCode),
		strings.ToUpper(subjectCode),
		uuid.NewString(),
		time.Now().Unix(),
		strings.ToLower(ext),
	)
}
