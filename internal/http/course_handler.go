package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"edunexus/internal/domain"
	"edunexus/internal/service"
)

// CourseHandler cubre cursos y clases.
type CourseHandler struct {
	logger     *zap.Logger
	courseServ *service.CourseService
	userServ   *service.UserService
}

func NewCourseHandler(logger *zap.Logger, courseServ *service.CourseService, userServ *service.UserService) *CourseHandler {
	return &CourseHandler{logger: logger, courseServ: courseServ, userServ: userServ}
}

// Create maneja POST /api/course/create.
func (h *CourseHandler) Create(c *gin.Context) {
	var req struct {
		Title       string  `json:"title" binding:"required"`
		Subtitle    string  `json:"subtitle"`
		Description string  `json:"description"`
		Category    string  `json:"category" binding:"required"`
		Level       string  `json:"level"`
		Price       float64 `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create course request", zap.Error(err))
		badRequest(c, "title and category are required")
		return
	}

	course, err := h.courseServ.Create(c.Request.Context(), principal(c), service.CourseInput{
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		Category:    req.Category,
		Level:       req.Level,
		Price:       req.Price,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "course": course})
}

// Published maneja GET /api/course/getpublished.
func (h *CourseHandler) Published(c *gin.Context) {
	courses, err := h.courseServ.ListPublished(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "courses": courses})
}

// CreatorCourses maneja GET /api/course/get-creator: los cursos del usuario autenticado.
func (h *CourseHandler) CreatorCourses(c *gin.Context) {
	courses, err := h.courseServ.ListByCreator(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "courses": courses})
}

// Creator maneja GET /api/course/creator. Sin ?userId= devuelve el perfil
// público del usuario autenticado.
func (h *CourseHandler) Creator(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = principal(c).UserID
	}
	user, err := h.userServ.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "creator": gin.H{
		"id":          user.ID,
		"name":        user.Name,
		"description": user.Description,
		"photo_url":   user.PhotoURL,
		"role":        user.Role,
	}})
}

// Get maneja GET /api/course/getcoursebyid/:courseId.
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courseServ.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": course})
}

// Edit maneja PUT /api/course/editcourse/:courseId (multipart, thumbnail opcional).
func (h *CourseHandler) Edit(c *gin.Context) {
	thumbnail, closer, err := formFile(c, "thumbnail", maxImageSize)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeQuietly(closer)

	update := domain.CourseUpdate{
		Title:       optionalForm(c, "title"),
		Subtitle:    optionalForm(c, "subtitle"),
		Description: optionalForm(c, "description"),
		Category:    optionalForm(c, "category"),
		Level:       optionalForm(c, "level"),
	}
	if update.Price, err = optionalFloat(c, "price"); err != nil {
		badRequest(c, err.Error())
		return
	}
	if update.IsPublished, err = optionalBool(c, "isPublished"); err != nil {
		badRequest(c, err.Error())
		return
	}

	course, err := h.courseServ.Update(c.Request.Context(), principal(c), c.Param("courseId"), update, thumbnail)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": course})
}

// Remove maneja DELETE /api/course/remove/:courseId.
func (h *CourseHandler) Remove(c *gin.Context) {
	if err := h.courseServ.Remove(c.Request.Context(), principal(c), c.Param("courseId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "course removed"})
}

// CreateLecture maneja POST /api/course/createlecture/:courseId.
func (h *CourseHandler) CreateLecture(c *gin.Context) {
	var req struct {
		LectureTitle string `json:"lectureTitle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "lectureTitle is required")
		return
	}
	lecture, err := h.courseServ.CreateLecture(c.Request.Context(), principal(c), c.Param("courseId"), req.LectureTitle)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "lecture": lecture})
}

// CourseLectures maneja GET /api/course/courselecture/:courseId.
func (h *CourseHandler) CourseLectures(c *gin.Context) {
	view, err := h.courseServ.CourseLectures(c.Request.Context(), principal(c), c.Param("courseId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": view.Course, "lectures": view.Lectures, "full_access": view.Full})
}

// EditLecture maneja PUT /api/course/editlecture/:lectureId (multipart, video opcional).
func (h *CourseHandler) EditLecture(c *gin.Context) {
	video, closer, err := formFile(c, "video", maxVideoSize)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer closeQuietly(closer)

	update := domain.LectureUpdate{Title: optionalForm(c, "lectureTitle")}
	if update.IsPreviewFree, err = optionalBool(c, "isPreviewFree"); err != nil {
		badRequest(c, err.Error())
		return
	}

	lecture, err := h.courseServ.UpdateLecture(c.Request.Context(), principal(c), c.Param("lectureId"), update, video)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lecture": lecture})
}

// RemoveLecture maneja DELETE /api/course/removelecture/:lectureId.
func (h *CourseHandler) RemoveLecture(c *gin.Context) {
	courseID, err := h.courseServ.RemoveLecture(c.Request.Context(), principal(c), c.Param("lectureId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "lecture removed", "courseId": courseID})
}

// Search maneja POST /api/course/search.
func (h *CourseHandler) Search(c *gin.Context) {
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "input is required")
		return
	}
	courses, err := h.courseServ.Search(c.Request.Context(), req.Input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "courses": courses})
}
