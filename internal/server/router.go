package server

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelierhq/atelier/backend/internal/catalog"
	"github.com/atelierhq/atelier/backend/internal/intake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const secretTokenHeader = "x-secret-token"

var (
	errMissingCatalogService = errors.New("catalog service dependency required")
	errMissingIntakeService  = errors.New("intake service dependency required")
	errMissingSecretToken    = errors.New("secret token dependency required")
)

type Dependencies struct {
	CatalogService *catalog.Service
	IntakeService  *intake.Service
	SecretToken    string
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.CatalogService == nil {
		return nil, errMissingCatalogService
	}
	if deps.IntakeService == nil {
		return nil, errMissingIntakeService
	}
	if strings.TrimSpace(deps.SecretToken) == "" {
		return nil, errMissingSecretToken
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "X-Secret-Token"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		catalog:     deps.CatalogService,
		intake:      deps.IntakeService,
		secretToken: []byte(deps.SecretToken),
		logger:      logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	art := router.Group("/art")
	art.Use(handler.authorizeRequest)
	art.GET("", handler.handleListArt)
	art.POST("", handler.handleCreateArt)
	art.PUT("", handler.handleUpdateArt)
	art.DELETE("", handler.handleDeleteArt)

	// The requests listing is intentionally left unguarded to match the
	// deployed behavior; guarding it is a pending product decision.
	router.GET("/requests", handler.handleListRequests)
	router.POST("/requests", handler.handleSubmitRequest)

	return router, nil
}

type httpHandler struct {
	catalog     *catalog.Service
	intake      *intake.Service
	secretToken []byte
	logger      *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	supplied := []byte(c.GetHeader(secretTokenHeader))
	if subtle.ConstantTimeCompare(supplied, h.secretToken) != 1 {
		h.logger.Info("catalog request rejected",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

func (h *httpHandler) handleListArt(c *gin.Context) {
	artworks, err := h.catalog.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, artworks)
}

type createArtPayload struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

func (h *httpHandler) handleCreateArt(c *gin.Context) {
	var payload createArtPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	artwork, err := h.catalog.Create(c.Request.Context(), catalog.Draft{
		Title:       payload.Title,
		Category:    payload.Category,
		Image:       payload.Image,
		Description: payload.Description,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Artwork added", "item": artwork})
}

type updateArtPayload struct {
	ID          string  `json:"id"`
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Image       *string `json:"image"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (h *httpHandler) handleUpdateArt(c *gin.Context) {
	var payload updateArtPayload
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	artwork, err := h.catalog.Update(c.Request.Context(), payload.ID, catalog.Patch{
		Title:       payload.Title,
		Category:    payload.Category,
		Image:       payload.Image,
		Description: payload.Description,
		IsActive:    payload.IsActive,
	})
	if errors.Is(err, catalog.ErrArtworkNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Artwork updated", "item": artwork})
}

type deleteArtPayload struct {
	ID string `json:"id"`
}

func (h *httpHandler) handleDeleteArt(c *gin.Context) {
	var payload deleteArtPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if err := h.catalog.Delete(c.Request.Context(), payload.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Artwork deleted"})
}

func (h *httpHandler) handleListRequests(c *gin.Context) {
	requests, err := h.intake.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *httpHandler) handleSubmitRequest(c *gin.Context) {
	if c.ContentType() != "multipart/form-data" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content type"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	defer file.Close()
	fileData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	request, err := h.intake.Submit(c.Request.Context(), intake.Submission{
		Name:     c.PostForm("name"),
		Email:    c.PostForm("email"),
		Social:   c.PostForm("social"),
		Style:    c.PostForm("style"),
		Notes:    c.PostForm("notes"),
		FileName: fileHeader.Filename,
		File:     fileData,
	})
	if errors.Is(err, intake.ErrMissingFields) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submit_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "id": request.ID, "message": "Request received. We'll follow up soon."})
}
