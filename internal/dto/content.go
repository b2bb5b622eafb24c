package dto

import (
	"time"

	"github.com/medlearn/lms-api/internal/models"
)

// UploadURLRequest asks for a presigned PUT URL before the client uploads
// bytes directly to object storage.
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required,min=1,max=255"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required,min=1"`
}

// UploadURLResponse carries the presigned PUT URL and the storage key the
// client must confirm against.
type UploadURLResponse struct {
	UploadURL string    `json:"upload_url"`
	FileKey   string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmUploadRequest finalises a direct upload after the bytes landed.
type ConfirmUploadRequest struct {
	FileKey     string  `json:"file_key" binding:"required"`
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=2000"`
}

// NoteResponse embeds uploader identity for immediate display.
type NoteResponse struct {
	models.Note
	UploaderName string `json:"uploader_name"`
}

// VideoResponse embeds uploader identity for immediate display.
type VideoResponse struct {
	models.Video
	UploaderName string `json:"uploader_name"`
}

// DownloadResponse is a time-limited document retrieval URL.
type DownloadResponse struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// StreamResponse resolves a processed video to its playable artifacts.
type StreamResponse struct {
	HLSURL          string `json:"hls_url"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds *int   `json:"duration"`
}

// ListContentQuery holds pagination and search parameters for listings.
type ListContentQuery struct {
	Search string `form:"search" binding:"omitempty,max=200"`
	Page   int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit  int    `form:"limit,default=20" binding:"omitempty,min=1,max=100"`
}

// SubjectDetailResponse attaches active content to a subject.
type SubjectDetailResponse struct {
	models.SubjectDetail
	Notes  []models.NoteWithUploader  `json:"notes"`
	Videos []models.VideoWithUploader `json:"videos"`
}
