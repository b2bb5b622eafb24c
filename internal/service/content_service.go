package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medlearn/lms-api/internal/dto"
	"github.com/medlearn/lms-api/internal/models"
	"github.com/medlearn/lms-api/internal/policy"
	"github.com/medlearn/lms-api/internal/repository"
	"github.com/medlearn/lms-api/pkg/config"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
	"github.com/medlearn/lms-api/pkg/storage"
)

var (
	noteExtensions  = map[string]struct{}{"pdf": {}, "doc": {}, "docx": {}, "ppt": {}, "pptx": {}, "txt": {}}
	videoExtensions = map[string]struct{}{"mp4": {}, "mov": {}, "avi": {}, "mkv": {}, "webm": {}}
)

type noteStore interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	ListBySubject(ctx context.Context, filter models.ContentFilter, search string) ([]models.NoteWithUploader, int64, error)
	SoftDelete(ctx context.Context, id string) error
}

type videoStore interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id string) (*models.Video, error)
	ListBySubject(ctx context.Context, filter models.ContentFilter, search string, completedOnly bool) ([]models.VideoWithUploader, int64, error)
	SoftDelete(ctx context.Context, id string) error
}

type subjectResolver interface {
	GetDetail(ctx context.Context, id string) (*models.SubjectDetail, error)
}

type objectStore interface {
	PresignUpload(key, contentType string, expiry time.Duration) (string, error)
	PresignDownload(key string, expiry time.Duration) (string, error)
	Head(ctx context.Context, key string) (int64, bool, error)
	PublicURL(key string) string
}

type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ContentService owns the upload and delivery workflow for notes and videos.
// URL issuance creates no rows; the row appears only at confirmation, after
// storage has vouched for the object.
type ContentService struct {
	notes    noteStore
	videos   videoStore
	subjects subjectResolver
	store    objectStore
	audit    auditRecorder
	cache    cacheInvalidator
	logger   *zap.Logger
	cfg      config.ContentConfig
}

// NewContentService constructs the service.
func NewContentService(notes noteStore, videos videoStore, subjects subjectResolver, store objectStore, audit auditRecorder, cache cacheInvalidator, logger *zap.Logger, cfg config.ContentConfig) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{
		notes:    notes,
		videos:   videos,
		subjects: subjects,
		store:    store,
		audit:    audit,
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
	}
}

// IssueUploadURL validates metadata and returns a presigned PUT URL. The
// client uploads directly to storage; no database row exists until confirm.
func (s *ContentService) IssueUploadURL(ctx context.Context, subjectID string, kind storage.ContentKind, req dto.UploadURLRequest, actor *models.JWTClaims) (*dto.UploadURLResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !policy.CanUpload(actor.Role) {
		return nil, appErrors.ErrForbidden
	}
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	filename := storage.SanitizeFilename(req.Filename)
	ext := storage.Extension(filename)
	allowed := allowedExtensions(kind)
	if _, ok := allowed[ext]; !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidFileType,
			fmt.Sprintf("file type %q not allowed, must be one of: %s", ext, extensionList(allowed)))
	}

	maxSize, uploadTTL := s.limitsFor(kind)
	if req.FileSize > maxSize {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", maxSize))
	}

	key := storage.BuildContentKey(kind, subject.DepartmentCode, subject.Code, ext)
	url, err := s.store.PresignUpload(key, req.ContentType, uploadTTL)
	if err != nil {
		s.logger.Error("presign upload failed", zap.String("key", key), zap.Error(err))
		return nil, appErrors.ErrStorageUnavailable
	}

	return &dto.UploadURLResponse{
		UploadURL: url,
		FileKey:   key,
		ExpiresAt: time.Now().UTC().Add(uploadTTL),
	}, nil
}

// ConfirmNote records a completed document upload. The size persisted comes
// from storage, never from the client.
func (s *ContentService) ConfirmNote(ctx context.Context, subjectID string, req dto.ConfirmUploadRequest, actor *models.JWTClaims, ip string) (*dto.NoteResponse, error) {
	subject, size, err := s.verifyConfirm(ctx, subjectID, req.FileKey, storage.KindNote, actor)
	if err != nil {
		return nil, err
	}

	ext := storage.Extension(req.FileKey)
	note := &models.Note{
		SubjectID:     subject.ID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		FileKey:       req.FileKey,
		FileName:      fileNameFromKey(req.FileKey),
		FileSizeBytes: size,
		FileType:      ext,
		MimeType:      mimeForExtension(ext),
		UploadedBy:    actor.UserID,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		if errors.Is(err, repository.ErrDuplicateFileKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this upload has already been confirmed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record note")
	}

	s.invalidateSubjectCache(ctx, subject.ID)
	s.emitAudit(ctx, actor, "content.note.confirm", "note", note.ID, ip)
	return &dto.NoteResponse{Note: *note, UploaderName: actor.FullName}, nil
}

// ConfirmVideo records a completed video upload. Rows always start pending;
// playable artifacts appear only once an external transcoder fills them in.
func (s *ContentService) ConfirmVideo(ctx context.Context, subjectID string, req dto.ConfirmUploadRequest, actor *models.JWTClaims, ip string) (*dto.VideoResponse, error) {
	subject, size, err := s.verifyConfirm(ctx, subjectID, req.FileKey, storage.KindVideo, actor)
	if err != nil {
		return nil, err
	}

	video := &models.Video{
		SubjectID:        subject.ID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		FileKey:          req.FileKey,
		FileName:         fileNameFromKey(req.FileKey),
		FileSizeBytes:    size,
		MimeType:         mimeForExtension(storage.Extension(req.FileKey)),
		ProcessingStatus: models.ProcessingPending,
		UploadedBy:       actor.UserID,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		if errors.Is(err, repository.ErrDuplicateFileKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "this upload has already been confirmed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record video")
	}

	s.invalidateSubjectCache(ctx, subject.ID)
	s.emitAudit(ctx, actor, "content.video.confirm", "video", video.ID, ip)
	return &dto.VideoResponse{Video: *video, UploaderName: actor.FullName}, nil
}

// Download resolves a note to a time-limited signed GET URL.
func (s *ContentService) Download(ctx context.Context, noteID string, actor *models.JWTClaims) (*dto.DownloadResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if !note.IsActive {
		return nil, appErrors.ErrNotFound
	}
	subject, err := s.loadSubject(ctx, note.SubjectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessSubject(actor.Role, actor.DepartmentID, subject.DepartmentID) {
		return nil, appErrors.ErrForbidden
	}

	url, err := s.store.PresignDownload(note.FileKey, s.cfg.DownloadTTL)
	if err != nil {
		s.logger.Error("presign download failed", zap.String("key", note.FileKey), zap.Error(err))
		return nil, appErrors.ErrStorageUnavailable
	}
	return &dto.DownloadResponse{
		DownloadURL: url,
		ExpiresAt:   time.Now().UTC().Add(s.cfg.DownloadTTL),
	}, nil
}

// Stream resolves a processed video to its HLS manifest and thumbnail. A
// video that has not finished processing yields VideoNotReady and no URL.
func (s *ContentService) Stream(ctx context.Context, videoID string, actor *models.JWTClaims) (*dto.StreamResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video")
	}
	if !video.IsActive {
		return nil, appErrors.ErrNotFound
	}
	subject, err := s.loadSubject(ctx, video.SubjectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessSubject(actor.Role, actor.DepartmentID, subject.DepartmentID) {
		return nil, appErrors.ErrForbidden
	}
	if !video.Streamable() {
		return nil, appErrors.ErrVideoNotReady
	}

	resp := &dto.StreamResponse{
		HLSURL:          s.store.PublicURL(*video.HLSKey),
		DurationSeconds: video.DurationSeconds,
	}
	if video.ThumbnailKey != nil {
		resp.ThumbnailURL = s.store.PublicURL(*video.ThumbnailKey)
	}
	return resp, nil
}

// ListNotes returns a subject's active notes for an authorized caller.
func (s *ContentService) ListNotes(ctx context.Context, subjectID string, query dto.ListContentQuery, actor *models.JWTClaims) ([]models.NoteWithUploader, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanAccessSubject(actor.Role, actor.DepartmentID, subject.DepartmentID) {
		return nil, nil, appErrors.ErrForbidden
	}

	filter := models.ContentFilter{SubjectID: subject.ID, Page: query.Page, Limit: query.Limit}
	notes, total, err := s.notes.ListBySubject(ctx, filter, query.Search)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	return notes, models.NewPagination(query.Page, query.Limit, total), nil
}

// ListVideos returns a subject's active videos. Students only ever see fully
// processed rows; staff see every pipeline state.
func (s *ContentService) ListVideos(ctx context.Context, subjectID string, query dto.ListContentQuery, actor *models.JWTClaims) ([]models.VideoWithUploader, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanAccessSubject(actor.Role, actor.DepartmentID, subject.DepartmentID) {
		return nil, nil, appErrors.ErrForbidden
	}

	completedOnly := actor.Role == models.RoleStudent
	filter := models.ContentFilter{SubjectID: subject.ID, Page: query.Page, Limit: query.Limit}
	videos, total, err := s.videos.ListBySubject(ctx, filter, query.Search, completedOnly)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list videos")
	}
	return videos, models.NewPagination(query.Page, query.Limit, total), nil
}

// DeleteNote soft deletes a note. Storage objects are never removed.
func (s *ContentService) DeleteNote(ctx context.Context, noteID string, actor *models.JWTClaims, ip string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note")
	}
	if !note.IsActive {
		return appErrors.ErrNotFound
	}
	if !policy.CanDelete(actor.Role, actor.UserID, note.UploadedBy) {
		return appErrors.ErrForbidden
	}
	if err := s.notes.SoftDelete(ctx, noteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	s.invalidateSubjectCache(ctx, note.SubjectID)
	s.emitAudit(ctx, actor, "content.note.delete", "note", noteID, ip)
	return nil
}

// DeleteVideo soft deletes a video. Storage objects are never removed.
func (s *ContentService) DeleteVideo(ctx context.Context, videoID string, actor *models.JWTClaims, ip string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video")
	}
	if !video.IsActive {
		return appErrors.ErrNotFound
	}
	if !policy.CanDelete(actor.Role, actor.UserID, video.UploadedBy) {
		return appErrors.ErrForbidden
	}
	if err := s.videos.SoftDelete(ctx, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete video")
	}
	s.invalidateSubjectCache(ctx, video.SubjectID)
	s.emitAudit(ctx, actor, "content.video.delete", "video", videoID, ip)
	return nil
}

func (s *ContentService) verifyConfirm(ctx context.Context, subjectID, fileKey string, kind storage.ContentKind, actor *models.JWTClaims) (*models.SubjectDetail, int64, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if !policy.CanUpload(actor.Role) {
		return nil, 0, appErrors.ErrForbidden
	}
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return nil, 0, err
	}
	if !strings.HasPrefix(fileKey, keyPrefix(kind)) {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "file key does not match the content type")
	}

	size, found, err := s.store.Head(ctx, fileKey)
	if err != nil {
		s.logger.Error("storage head failed", zap.String("key", fileKey), zap.Error(err))
		return nil, 0, appErrors.ErrStorageUnavailable
	}
	if !found {
		return nil, 0, appErrors.ErrUploadIncomplete
	}
	return subject, size, nil
}

func (s *ContentService) loadSubject(ctx context.Context, id string) (*models.SubjectDetail, error) {
	subject, err := s.subjects.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

func (s *ContentService) invalidateSubjectCache(ctx context.Context, subjectID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "subjects:"+subjectID+"*"); err != nil {
		s.logger.Warn("failed to invalidate subject cache", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

func (s *ContentService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, entity, entityID, ip string) {
	if s.audit == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &models.AuditLog{
		UserID:   &actor.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: &entityID,
		IP:       ip,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}

func (s *ContentService) limitsFor(kind storage.ContentKind) (int64, time.Duration) {
	if kind == storage.KindVideo {
		return s.cfg.MaxVideoSizeBytes, s.cfg.VideoUploadTTL
	}
	return s.cfg.MaxNoteSizeBytes, s.cfg.NoteUploadTTL
}

func allowedExtensions(kind storage.ContentKind) map[string]struct{} {
	if kind == storage.KindVideo {
		return videoExtensions
	}
	return noteExtensions
}

func extensionList(set map[string]struct{}) string {
	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

func keyPrefix(kind storage.ContentKind) string {
	if kind == storage.KindVideo {
		return "videos/raw/"
	}
	return "notes/"
}

func fileNameFromKey(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func mimeForExtension(ext string) string {
	switch ext {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "ppt":
		return "application/vnd.ms-powerpoint"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "txt":
		return "text/plain"
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
