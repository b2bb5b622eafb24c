package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilenameStripsPathsAndSpecials(t *testing.T) {
	require.Equal(t, "lecture.pdf", SanitizeFilename("../../etc/lecture.pdf"))
	require.Equal(t, "lecture.pdf", SanitizeFilename("C:\\Users\\doc\\lecture.pdf"))
	require.Equal(t, "my_notes__1_.pdf", SanitizeFilename("my notes (1).pdf"))
	require.Equal(t, "plain-file_name.txt", SanitizeFilename("plain-file_name.txt"))
}

func TestExtensionIsLowercased(t *testing.T) {
	require.Equal(t, "pdf", Extension("Lecture.PDF"))
	require.Equal(t, "mp4", Extension("surgery.mp4"))
	require.Equal(t, "", Extension("noextension"))
}

func TestBuildContentKeyLayout(t *testing.T) {
	key := BuildContentKey(KindNote, "anat", "anat101", "PDF")
	require.True(t, strings.HasPrefix(key, "notes/ANAT/ANAT101/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))

	videoKey := BuildContentKey(KindVideo, "PHYS", "phys201", "mp4")
	require.True(t, strings.HasPrefix(videoKey, "videos/raw/PHYS/PHYS201/"))
	require.True(t, strings.HasSuffix(videoKey, ".mp4"))
}

func TestBuildContentKeyIsUnique(t *testing.T) {
	a := BuildContentKey(KindNote, "ANAT", "ANAT101", "pdf")
	b := BuildContentKey(KindNote, "ANAT", "ANAT101", "pdf")
	require.NotEqual(t, a, b)
}
