package api

import (
	"errors"
	"net/http"

	"sharebox/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DownloadHandler serves the unauthenticated download path. No identity is
// checked anywhere here: possession of the share token grants access.
type DownloadHandler struct {
	shares        service.ShareService
	publicBaseURL string
	log           *zap.Logger
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(shares service.ShareService, publicBaseURL string, log *zap.Logger) *DownloadHandler {
	return &DownloadHandler{shares: shares, publicBaseURL: publicBaseURL, log: log}
}

// Download resolves a share token and redirects the browser to the stored
// object's capability URL.
func (h *DownloadHandler) Download(c *gin.Context) {
	shareID := c.Param("shareId")

	rec, err := h.shares.Resolve(c.Request.Context(), shareID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		h.log.Error("share resolution failed", zap.String("shareId", shareID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	target := h.shares.FreshDownloadURL(c.Request.Context(), rec)
	if target == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download URL not found"})
		return
	}

	c.Redirect(http.StatusFound, target)
}

// FileInfo returns the metadata the download page renders, along with the
// composed share links. Presentation data only; the redirect above is the
// actual download contract.
func (h *DownloadHandler) FileInfo(c *gin.Context) {
	shareID := c.Param("shareId")

	rec, err := h.shares.Resolve(c.Request.Context(), shareID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		h.log.Error("share resolution failed", zap.String("shareId", shareID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	shareURL := h.publicBaseURL + "/download/" + rec.ShareID
	c.JSON(http.StatusOK, gin.H{
		"file":       rec,
		"shareUrl":   shareURL,
		"shareLinks": h.shares.ShareLinks(shareURL, rec.OriginalName),
	})
}
