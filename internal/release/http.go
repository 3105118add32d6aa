package release

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

// RegisterRoutes mounts release endpoints. Uploads and activation changes go on
// the publisher group; listing and downloads are public.
func RegisterRoutes(public, publisher *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	public.GET("/releases/latest", handler.latest)
	public.GET("/releases/:id/download", handler.download)
	public.GET("/releases/:id/link", handler.link)

	publisher.POST("/releases", httpx.LimitBody(validation.ReleaseMaxRequestSize), handler.upload)
	publisher.GET("/releases/:id", handler.get)
	publisher.PATCH("/releases/:id/active", handler.setActive)
}

type httpHandler struct {
	service *Service
}

type uploadForm struct {
	Version      string                `form:"version" binding:"required,max=20"`
	Type         string                `form:"type" binding:"required"`
	ReleaseNotes string                `form:"release_notes" binding:"max=5000"`
	File         *multipart.FileHeader `form:"file"`
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *httpHandler) upload(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		if httpx.BodyTooLarge(c, err) {
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "version and type are required; version is at most 20 and release_notes at most 5000 characters"})
		return
	}

	releaseType, err := artifact.ParseReleaseType(form.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Release Type"})
		return
	}

	rel, err := h.service.Upload(c.Request.Context(), UploadRequest{
		Version:      form.Version,
		Type:         releaseType,
		ReleaseNotes: form.ReleaseNotes,
		File:         artifact.FromMultipart(form.File),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rel)
}

func (h *httpHandler) latest(c *gin.Context) {
	list, err := h.service.Latest(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *httpHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rel, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (h *httpHandler) download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	dl, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, dl.Size, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.FileName),
	})
}

func (h *httpHandler) link(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	link, err := h.service.DownloadLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

func (h *httpHandler) setActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active is required"})
		return
	}

	rel, err := h.service.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid release id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(apperr.KindOf(err)), gin.H{"error": apperr.Message(err)})
}
