package ticket

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abduss/artifactdrive/internal/apperr"
	"github.com/abduss/artifactdrive/internal/artifact"
	"github.com/abduss/artifactdrive/internal/httpx"
	"github.com/abduss/artifactdrive/internal/validation"
)

// RegisterRoutes mounts ticket endpoints. Submission is anonymous; reading,
// deleting and attachment downloads are for support staff.
func RegisterRoutes(public, staff *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	public.POST("/support-tickets", httpx.LimitBody(validation.AttachmentMaxRequestSize), handler.create)

	staff.GET("/support-tickets/:id", handler.get)
	staff.DELETE("/support-tickets/:id", handler.delete)
	staff.GET("/support-attachments/:id/download", handler.downloadAttachment)
}

type httpHandler struct {
	service *Service
}

type createForm struct {
	Email       string `form:"email"`
	Title       string `form:"title"`
	Category    string `form:"category"`
	Description string `form:"description"`
}

func (h *httpHandler) create(c *gin.Context) {
	var form createForm
	if err := c.ShouldBind(&form); err != nil {
		if httpx.BodyTooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid support ticket form"})
		return
	}

	var headers []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		headers = append(headers, mf.File["attachments"]...)
		headers = append(headers, mf.File["attachments[]"]...)
	}
	files := make([]artifact.FileDescriptor, 0, len(headers))
	for _, fh := range headers {
		files = append(files, artifact.FromMultipart(fh))
	}

	result, err := h.service.Create(c.Request.Context(), CreateRequest{
		Email:       form.Email,
		Title:       form.Title,
		Category:    form.Category,
		Description: form.Description,
		Attachments: files,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *httpHandler) get(c *gin.Context) {
	id, ok := parseID(c, "invalid ticket id")
	if !ok {
		return
	}
	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *httpHandler) delete(c *gin.Context) {
	id, ok := parseID(c, "invalid ticket id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) downloadAttachment(c *gin.Context) {
	id, ok := parseID(c, "invalid attachment id")
	if !ok {
		return
	}

	dl, err := h.service.DownloadAttachment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.FileName),
	})
}

func parseID(c *gin.Context, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(apperr.KindOf(err)), gin.H{"error": apperr.Message(err)})
}
