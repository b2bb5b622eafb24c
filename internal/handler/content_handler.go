package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medlearn/lms-api/internal/dto"
	"github.com/medlearn/lms-api/internal/service"
	appErrors "github.com/medlearn/lms-api/pkg/errors"
	"github.com/medlearn/lms-api/pkg/response"
	"github.com/medlearn/lms-api/pkg/storage"
)

// ContentHandler exposes the upload and delivery endpoints for notes and videos.
type ContentHandler struct {
	service *service.ContentService
	metrics *service.MetricsService
}

// NewContentHandler constructs a content handler.
func NewContentHandler(svc *service.ContentService, metrics *service.MetricsService) *ContentHandler {
	return &ContentHandler{service: svc, metrics: metrics}
}

// NoteUploadURL godoc
// @Summary Request a presigned upload URL for a document
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.UploadURLRequest true "Upload metadata"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/notes/upload-url [post]
func (h *ContentHandler) NoteUploadURL(c *gin.Context) {
	h.uploadURL(c, storage.KindNote)
}

// VideoUploadURL godoc
// @Summary Request a presigned upload URL for a video
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.UploadURLRequest true "Upload metadata"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/videos/upload-url [post]
func (h *ContentHandler) VideoUploadURL(c *gin.Context) {
	h.uploadURL(c, storage.KindVideo)
}

func (h *ContentHandler) uploadURL(c *gin.Context, kind storage.ContentKind) {
	var req dto.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.service.IssueUploadURL(c.Request.Context(), c.Param("id"), kind, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "upload url issued", resp)
}

// ConfirmNote godoc
// @Summary Confirm a completed document upload
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.ConfirmUploadRequest true "Confirmation payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/{id}/notes/confirm-upload [post]
func (h *ContentHandler) ConfirmNote(c *gin.Context) {
	var req dto.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.service.ConfirmNote(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordUpload("note")
	response.Created(c, "note uploaded", note)
}

// ConfirmVideo godoc
// @Summary Confirm a completed video upload
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.ConfirmUploadRequest true "Confirmation payload"
// @Success 201 {object} response.Envelope
// @Router /subjects/{id}/videos/confirm-upload [post]
func (h *ContentHandler) ConfirmVideo(c *gin.Context) {
	var req dto.ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	video, err := h.service.ConfirmVideo(c.Request.Context(), c.Param("id"), req, claimsFromContext(c), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.recordUpload("video")
	response.Created(c, "video uploaded", video)
}

// ListNotes godoc
// @Summary List a subject's notes
// @Tags Content
// @Produce json
// @Param id path string true "Subject ID"
// @Param search query string false "Title/description search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/notes [get]
func (h *ContentHandler) ListNotes(c *gin.Context) {
	var query dto.ListContentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	notes, pagination, err := h.service.ListNotes(c.Request.Context(), c.Param("id"), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "notes retrieved", notes, pagination)
}

// ListVideos godoc
// @Summary List a subject's videos
// @Tags Content
// @Produce json
// @Param id path string true "Subject ID"
// @Param search query string false "Title/description search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/videos [get]
func (h *ContentHandler) ListVideos(c *gin.Context) {
	var query dto.ListContentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	videos, pagination, err := h.service.ListVideos(c.Request.Context(), c.Param("id"), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "videos retrieved", videos, pagination)
}

// DownloadNote godoc
// @Summary Resolve a note to a signed download URL
// @Tags Content
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/download [get]
func (h *ContentHandler) DownloadNote(c *gin.Context) {
	resp, err := h.service.Download(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "download url issued", resp)
}

// StreamVideo godoc
// @Summary Resolve a processed video to its HLS manifest and thumbnail
// @Tags Content
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Router /videos/{id}/stream [get]
func (h *ContentHandler) StreamVideo(c *gin.Context) {
	resp, err := h.service.Stream(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "stream resolved", resp)
}

// DeleteNote godoc
// @Summary Soft delete a note
// @Tags Content
// @Produce json
// @Param id path string true "Note ID"
// @Success 204
// @Router /notes/{id} [delete]
func (h *ContentHandler) DeleteNote(c *gin.Context) {
	if err := h.service.DeleteNote(c.Request.Context(), c.Param("id"), claimsFromContext(c), c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteVideo godoc
// @Summary Soft delete a video
// @Tags Content
// @Produce json
// @Param id path string true "Video ID"
// @Success 204
// @Router /videos/{id} [delete]
func (h *ContentHandler) DeleteVideo(c *gin.Context) {
	if err := h.service.DeleteVideo(c.Request.Context(), c.Param("id"), claimsFromContext(c), c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ContentHandler) recordUpload(kind string) {
	if h.metrics != nil {
		h.metrics.RecordUploadConfirmed(kind)
	}
}
