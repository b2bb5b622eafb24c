package models

import "time"

// ProcessingStatus tracks the transcoding pipeline state of a video.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// IsValid reports whether the status is a known pipeline state.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case ProcessingPending, ProcessingInProgress, ProcessingCompleted, ProcessingFailed:
		return true
	}
	return false
}

// Note is an uploaded document attached to a subject. A row exists only after
// the client has confirmed its direct upload, so file_key always points at a
// real stored object.
type Note struct {
	ID            string     `db:"id" json:"id"`
	SubjectID     string     `db:"subject_id" json:"subject_id"`
	Title         string     `db:"title" json:"title"`
	Description   *string    `db:"description" json:"description,omitempty"`
	FileKey       string     `db:"file_key" json:"-"`
	FileName      string     `db:"file_name" json:"file_name"`
	FileSizeBytes int64      `db:"file_size_bytes" json:"file_size_bytes"`
	FileType      string     `db:"file_type" json:"file_type"`
	MimeType      string     `db:"mime_type" json:"mime_type"`
	Version       int        `db:"version" json:"version"`
	UploadedBy    string     `db:"uploaded_by" json:"uploaded_by"`
	IsActive      bool       `db:"is_active" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Video is an uploaded lecture recording. Raw uploads land under a raw key
// and become streamable once the transcoder marks them completed.
type Video struct {
	ID               string           `db:"id" json:"id"`
	SubjectID        string           `db:"subject_id" json:"subject_id"`
	Title            string           `db:"title" json:"title"`
	Description      *string          `db:"description" json:"description,omitempty"`
	FileKey          string           `db:"file_key" json:"-"`
	FileName         string           `db:"file_name" json:"file_name"`
	FileSizeBytes    int64            `db:"file_size_bytes" json:"file_size_bytes"`
	MimeType         string           `db:"mime_type" json:"mime_type"`
	ProcessingStatus ProcessingStatus `db:"processing_status" json:"processing_status"`
	HLSKey           *string          `db:"hls_key" json:"-"`
	ThumbnailKey     *string          `db:"thumbnail_key" json:"-"`
	DurationSeconds  *int             `db:"duration_seconds" json:"duration_seconds,omitempty"`
	UploadedBy       string           `db:"uploaded_by" json:"uploaded_by"`
	IsActive         bool             `db:"is_active" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// Streamable reports whether the video can be served to viewers.
func (v *Video) Streamable() bool {
	return v.ProcessingStatus == ProcessingCompleted && v.HLSKey != nil
}

// ContentFilter narrows note and video listings for a subject.
type ContentFilter struct {
	SubjectID string
	Page      int
	Limit     int
}

// NoteWithUploader decorates a note with uploader identity for listings.
type NoteWithUploader struct {
	Note
	UploaderName string `db:"uploader_name" json:"uploader_name"`
}

// VideoWithUploader decorates a video with uploader identity for listings.
type VideoWithUploader struct {
	Video
	UploaderName string `db:"uploader_name" json:"uploader_name"`
}
