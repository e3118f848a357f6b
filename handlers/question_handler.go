package handlers

import (
	"net/http"
	"strings"

	"hotseat/services"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	questions *services.QuestionService
}

func NewQuestionHandler(questions *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	questions, err := h.questions.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions, "count": len(questions)})
}

// RandomQuestion takes a comma separated exclude list.
func (h *QuestionHandler) RandomQuestion(c *gin.Context) {
	var exclude []string
	for _, id := range strings.Split(c.Query("exclude"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			exclude = append(exclude, id)
		}
	}

	q, err := h.questions.Random(c.Request.Context(), exclude)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, q.Public(false))
}

func (h *QuestionHandler) UploadQuestions(c *gin.Context) {
	var req services.UploadQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Questions) == 0 {
		badRequest(c, "no questions in upload")
		return
	}

	res := h.questions.Upload(c.Request.Context(), &req)
	status := http.StatusCreated
	if res.SuccessCount == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, res)
}

func (h *QuestionHandler) SeedQuestions(c *gin.Context) {
	n, err := h.questions.Seed(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"seeded": n})
}

func (h *QuestionHandler) ClearQuestions(c *gin.Context) {
	n, err := h.questions.Clear(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
