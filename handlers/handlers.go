package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Yapcheekian/shortlink/models"
	"github.com/Yapcheekian/shortlink/services"
	"github.com/gin-gonic/gin"
)

// LinkService is the part of services.LinkService the HTTP layer needs.
type LinkService interface {
	Create(ctx context.Context, originalURL string, expiresIn *float64) (*models.Link, error)
	List(ctx context.Context) ([]models.Link, error)
	Resolve(ctx context.Context, shortID string) (*models.Link, error)
	Delete(ctx context.Context, shortID string) error
	Ping(ctx context.Context) error
}

type ShortenerHandler struct {
	svc     LinkService
	baseURL string
}

// NewShortenerHandler registers the link routes on router. An empty baseURL
// makes short URLs point at the host the request came in on.
func NewShortenerHandler(router *gin.RouterGroup, svc LinkService, baseURL string) *ShortenerHandler {
	handler := &ShortenerHandler{
		svc:     svc,
		baseURL: baseURL,
	}

	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	api.POST("/shorten", handler.ShortenURL)
	api.GET("/all", handler.ListURLs)
	api.GET("/:shortId", handler.RedirectURL)
	api.DELETE("/:shortId", handler.DeleteURL)

	return handler
}

// hours accepts both 24 and "24", the way browsers tend to send form values.
type hours float64

func (h *hours) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expiresIn must be a number of hours")
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return errors.New("expiresIn must be a number of hours")
	}
	*h = hours(f)
	return nil
}

type shortenRequest struct {
	OriginalURL string `json:"originalUrl"`
	ExpiresIn   *hours `json:"expiresIn"`
}

type shortenResponse struct {
	ShortURL  string    `json:"shortUrl"`
	Clicks    int64     `json:"clicks"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *ShortenerHandler) ShortenURL(c *gin.Context) {
	var req shortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}

	var expiresIn *float64
	if req.ExpiresIn != nil {
		v := float64(*req.ExpiresIn)
		expiresIn = &v
	}

	link, err := h.svc.Create(c.Request.Context(), req.OriginalURL, expiresIn)
	if err != nil {
		h.fail(c, statusFor(err, http.StatusInternalServerError), err)
		return
	}

	c.JSON(http.StatusOK, shortenResponse{
		ShortURL:  h.shortURL(c.Request, link.ShortID),
		Clicks:    link.Clicks,
		ExpiresAt: link.ExpiresAt,
	})
}

func (h *ShortenerHandler) ListURLs(c *gin.Context) {
	links, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// RedirectURL answers 410 for both unknown and expired identifiers.
func (h *ShortenerHandler) RedirectURL(c *gin.Context) {
	link, err := h.svc.Resolve(c.Request.Context(), c.Param("shortId"))
	if err != nil {
		h.fail(c, statusFor(err, http.StatusGone), err)
		return
	}
	c.Redirect(http.StatusFound, link.OriginalURL)
}

func (h *ShortenerHandler) DeleteURL(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("shortId")); err != nil {
		h.fail(c, statusFor(err, http.StatusNotFound), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "link deleted"})
}

func (h *ShortenerHandler) Health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		h.fail(c, http.StatusServiceUnavailable, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps service errors; notFound is the code the route uses for a missing link.
func statusFor(err error, notFound int) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrExpired):
		return notFound
	default:
		return http.StatusInternalServerError
	}
}

// fail records err for the request logger and writes the public message.
func (h *ShortenerHandler) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)

	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError:
		msg = services.ErrInternal.Error()
	case errors.Is(err, services.ErrExpired):
		msg = services.ErrExpired.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *ShortenerHandler) shortURL(req *http.Request, shortID string) string {
	base := h.baseURL
	if base == "" {
		base = parseServerHost(req)
	}
	return fmt.Sprintf("%s/api/%s", base, shortID)
}

func parseServerHost(req *http.Request) string {
	var scheme string
	if req.TLS == nil {
		scheme = "http"
	} else {
		scheme = "https"
	}

	return scheme + "://" + req.Host
}
