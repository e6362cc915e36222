package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appnotification "github.com/madrasa/backend/internal/application/notification"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
)

// MaxUploadSize caps a single document upload
const MaxUploadSize = 10 << 20

// DocumentService stores attachments in object storage
type DocumentService interface {
	Upload(ctx context.Context, tenantID uuid.UUID, input appnotification.UploadInput) (*notification.DocumentUpload, error)
	List(ctx context.Context, tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) ([]notification.DocumentUpload, error)
	Download(ctx context.Context, tenantID, documentID uuid.UUID) (*appnotification.DownloadLink, error)
}

// DocumentHandler serves document uploads and download links
type DocumentHandler struct {
	BaseHandler
	documents DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type UploadDocumentForm struct {
	OwnerType string `form:"owner_type" binding:"required,oneof=registration student collection"`
	OwnerID   string `form:"owner_id" binding:"required,uuid"`
	Kind      string `form:"kind" binding:"required,oneof=PHOTO TRANSFER_CERTIFICATE ID_CARD RECEIPT OTHER"`
}

type DocumentQuery struct {
	OwnerType string `form:"owner_type" binding:"required,oneof=registration student collection"`
	OwnerID   string `form:"owner_id" binding:"required,uuid"`
}

// Upload stores a multipart "file" against its owner record
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var form UploadDocumentForm
	if err := c.ShouldBind(&form); err != nil {
		middleware.BindError(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.Error(c, shared.NewValidationError("file", "A file is required"))
		return
	}
	if header.Size > MaxUploadSize {
		middleware.Abort(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "File exceeds the 10MB limit")
		return
	}
	f, err := header.Open()
	if err != nil {
		h.Error(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		h.Error(c, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	doc, err := h.documents.Upload(c.Request.Context(), actor.TenantID, appnotification.UploadInput{
		OwnerType:   form.OwnerType,
		OwnerID:     mustID(form.OwnerID),
		Kind:        notification.DocumentKind(form.Kind),
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
		UploadedBy:  &actor.UserID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, documentView(doc))
}

func (h *DocumentHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q DocumentQuery
	if !h.BindQuery(c, &q) {
		return
	}
	docs, err := h.documents.List(c.Request.Context(), actor.TenantID, q.OwnerType, mustID(q.OwnerID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(docs, documentView))
}

// Download returns a presigned link to the document
func (h *DocumentHandler) Download(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	link, err := h.documents.Download(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	doc := documentView(link.Document)
	h.Success(c, LinkView{URL: link.URL, ExpiresAt: link.ExpiresAt, Document: &doc})
}
