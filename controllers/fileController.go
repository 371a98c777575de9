package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meriawaaz-be/storage"
)

const uploadFolder = "issues"

func (h *Handler) UploadImage(c *gin.Context) {
	h.upload(c, "image", storage.ImageExtensions, "imageUrl", "Image uploaded successfully")
}

func (h *Handler) UploadAudio(c *gin.Context) {
	h.upload(c, "audio", storage.AudioExtensions, "audioUrl", "Audio uploaded successfully")
}

func (h *Handler) upload(c *gin.Context, field string, allowed []string, key, message string) {
	if h.blobs == nil {
		fail(c, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	header, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		fail(c, http.StatusBadRequest, "Missing "+field+" file")
		return
	}
	if err := storage.CheckExtension(header.Filename, allowed); err != nil {
		fail(c, http.StatusBadRequest, "Unsupported file type")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.internalError(c, "Failed to read upload", err)
		return
	}
	defer file.Close()

	uid := ""
	if identity := currentIdentity(c); identity != nil {
		uid = identity.UID
	}

	name := storage.ObjectName(uploadFolder, uid, header.Filename)
	url, err := h.blobs.Put(c.Request.Context(), file, header.Size, name, storage.ContentType(header.Filename))
	if err != nil {
		h.internalError(c, "Failed to upload "+field, err)
		return
	}
	respond(c, http.StatusOK, gin.H{key: url}, message)
}
