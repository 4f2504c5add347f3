package api

import (
	"errors"
	"io"
	"net/http"

	"sharebox/internal/identity"
	"sharebox/internal/progress"
	"sharebox/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadHandler drives the upload pipeline over HTTP and relays progress
// to the page through the broker.
type UploadHandler struct {
	uploads       service.UploadService
	broker        *progress.Broker
	publicBaseURL string
	log           *zap.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads service.UploadService, broker *progress.Broker, publicBaseURL string, log *zap.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, broker: broker, publicBaseURL: publicBaseURL, log: log}
}

// --- Response Structs ---

type UploadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	ShareID     string `json:"shareId"`
	ShareURL    string `json:"shareUrl"`
}

// --- Handler Methods ---

// BeginSession hands out a progress session id. The page subscribes to
// /uploads/:id/events with it and then posts the file with ?session=<id>.
func (h *UploadHandler) BeginSession(c *gin.Context) {
	id, _ := h.broker.Start()
	c.JSON(http.StatusCreated, gin.H{"uploadId": id})
}

// Create accepts one multipart file upload and runs the pipeline.
func (h *UploadHandler) Create(c *gin.Context) {
	uid, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, service.ErrNotSignedIn.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "No file provided")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not read uploaded file")
		return
	}
	defer file.Close()

	// Attach to a pre-created progress session when the page provided one,
	// otherwise track anonymously so the pipeline contract stays the same.
	var tracker *progress.Tracker
	if sessionID := c.Query("session"); sessionID != "" {
		if t, ok := h.broker.Get(sessionID); ok {
			tracker = t
			defer h.broker.Release(sessionID)
		}
	}
	if tracker == nil {
		var id string
		id, tracker = h.broker.Start()
		defer h.broker.Release(id)
	}

	result, err := h.uploads.Upload(c.Request.Context(), service.UploadInput{
		Owner: &identity.Identity{
			UID:   uid,
			Email: getUserEmailFromContext(c),
		},
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
		OnProgress:  tracker.Report,
	})
	tracker.Finish(err)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotSignedIn), errors.Is(err, service.ErrMissingUserID):
			abortWithError(c, http.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrFileTooLarge):
			abortWithError(c, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadFailed), errors.Is(err, service.ErrDownloadURL), errors.Is(err, service.ErrSaveMetadata):
			abortWithError(c, http.StatusBadGateway, err.Error())
		default:
			h.log.Error("unexpected upload failure", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		DownloadURL: result.DownloadURL,
		ShareID:     result.ShareID,
		ShareURL:    h.publicBaseURL + "/download/" + result.ShareID,
	})
}

// Events streams progress updates for one upload session over SSE.
func (h *UploadHandler) Events(c *gin.Context) {
	tracker, ok := h.broker.Get(c.Param("id"))
	if !ok {
		abortWithError(c, http.StatusNotFound, "Unknown upload session")
		return
	}

	ch, cancel := tracker.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case u, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("progress", u)
			return !u.Done
		case <-c.Request.Context().Done():
			return false
		}
	})
}
