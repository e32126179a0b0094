package uploads

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"doctext-backend/internal/extract"
	"doctext-backend/internal/shared/server/middleware"
	"doctext-backend/internal/shared/server/respond"
	"doctext-backend/internal/tier"
)

// PremiumPath is where oversized free uploads are sent.
const PremiumPath = "/api/v1/premium"

const extractionFailedMessage = "An error occurred while processing the file. Please try another file."

type Handler struct {
	Svc *Service
	// MaxUploadBytes caps the request body for every tier.
	MaxUploadBytes int64
}

func NewHandler(svc *Service, maxUploadMB int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadMB << 20}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		// Multipart framing needs some room on top of the file itself.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+64<<10)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds the maximum upload size", map[string]any{
				"limitMb": h.MaxUploadBytes >> 20,
			})
			return
		}
		respond.Validation(c, ErrNoFile.Error(), nil)
		return
	}
	if strings.TrimSpace(fileHeader.Filename) == "" {
		respond.Validation(c, ErrNoFile.Error(), nil)
		return
	}
	c.Set("fileName", fileHeader.Filename)

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer file.Close()

	userID := middleware.UserIDFromContext(c)
	result, err := h.Svc.Process(c.Request.Context(), Upload{
		UserID:   userID,
		FileName: fileHeader.Filename,
		Body:     file,
	})
	if result.FileName != "" {
		c.Set("fileName", result.FileName)
		c.Set("tier", TierName(result.IsPremium))
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoFile):
		respond.Validation(c, ErrNoFile.Error(), nil)
	case errors.Is(err, ErrInvalidExtension):
		respond.Validation(c, "allowed formats: "+formatAllowed(h.Svc.AllowedExtensions()), nil)
	case errors.Is(err, tier.ErrFileTooLarge):
		c.Header("Location", PremiumPath)
		respond.Error(c, http.StatusRequestEntityTooLarge, "upgrade_required", "file exceeds the free tier limit, upgrade to premium to upload larger files", map[string]any{
			"redirect": PremiumPath,
			"limitMb":  h.Svc.Policy.Limits().FreeFileSizeMB,
		})
	case errors.Is(err, extract.ErrExtraction):
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", extractionFailedMessage, nil)
	case c.Request.Context().Err() != nil:
		c.Abort()
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process upload", nil)
	}
}
