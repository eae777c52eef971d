package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-tournament/internal/service"
)

// QuestionHandler обрабатывает запросы к банку вопросов
type QuestionHandler struct {
	bank *service.QuestionBank
}

// NewQuestionHandler создает новый обработчик банка вопросов
func NewQuestionHandler(bank *service.QuestionBank) *QuestionHandler {
	return &QuestionHandler{bank: bank}
}

// GetStats возвращает статистику загруженного банка
// GET /api/questions/stats
func (h *QuestionHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.bank.Stats())
}

// Reload сбрасывает кэш и перезагружает банк из источника.
// Уже идущие турниры продолжают работать со своим снимком.
// POST /api/questions/reload
func (h *QuestionHandler) Reload(c *gin.Context) {
	if err := h.bank.InvalidateCache(); err != nil {
		// Ошибка Redis не блокирует перезагрузку
		log.Printf("[QuestionHandler] %v", err)
	}

	stats, err := h.bank.Reload(c.Request.Context())
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Question bank reloaded",
		"stats":   stats,
	})
}
