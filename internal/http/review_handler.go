package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/service"
)

type ReviewHandler struct {
	logger     *zap.Logger
	reviewServ *service.ReviewService
}

func NewReviewHandler(logger *zap.Logger, reviewServ *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{logger: logger, reviewServ: reviewServ}
}

// Create maneja POST /api/reviews/create.
func (h *ReviewHandler) Create(c *gin.Context) {
	var req struct {
		CourseID string `json:"courseId"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "rating must be a number and courseId a string")
		return
	}
	review, err := h.reviewServ.Create(c.Request.Context(), principal(c), service.ReviewInput{
		CourseID: req.CourseID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "review": review})
}

// List maneja GET /api/reviews/get.
func (h *ReviewHandler) List(c *gin.Context) {
	reviews, err := h.reviewServ.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviews": reviews})
}

// Summary maneja GET /api/reviews/summary/:courseId.
func (h *ReviewHandler) Summary(c *gin.Context) {
	summary, err := h.reviewServ.Summary(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}
