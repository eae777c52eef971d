package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	"github.com/yourusername/quiz-tournament/internal/handler/dto"
	"github.com/yourusername/quiz-tournament/internal/handler/helper"
	"github.com/yourusername/quiz-tournament/internal/middleware"
	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
	"github.com/yourusername/quiz-tournament/internal/service"
)

// RoomCloser закрывает WebSocket-комнату турнира
type RoomCloser interface {
	CloseRoom(tournamentID uuid.UUID)
}

// TournamentHandler обрабатывает запросы, связанные с турнирами
type TournamentHandler struct {
	tournaments *service.TournamentService
	rooms       RoomCloser
}

// NewTournamentHandler создает новый обработчик турниров. rooms может быть nil.
func NewTournamentHandler(tournaments *service.TournamentService, rooms RoomCloser) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		rooms:       rooms,
	}
}

// CreateTournament создает турнир и запускает первый матч
// POST /api/tournaments
func (h *TournamentHandler) CreateTournament(c *gin.Context) {
	var req dto.CreateTournamentRequest
	// Пустое тело - турнир с настройками по умолчанию
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tournaments.Create(c.Request.Context(), req.PlayerCount, req.Seed)
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewCreateTournamentResponse(result))
}

// GetTournament возвращает состояние турнира
// GET /api/tournaments/:id
func (h *TournamentHandler) GetTournament(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)

	snapshot, err := h.tournaments.Snapshot(id)
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// NextMatch запускает следующий матч
// POST /api/tournaments/:id/next
func (h *TournamentHandler) NextMatch(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)

	outcome, err := h.tournaments.RunNextMatch(c.Request.Context(), id)
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// SubmitAnswer принимает ответ на текущий вопрос
// POST /api/tournaments/:id/answer
func (h *TournamentHandler) SubmitAnswer(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)

	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.tournaments.SubmitAnswer(c.Request.Context(), id, *req.Choice)
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// GetHistory возвращает историю турнира
// GET /api/tournaments/:id/history
func (h *TournamentHandler) GetHistory(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)

	history, err := h.tournaments.History(id)
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewHistoryResponse(id, history))
}

// ExportHistory экспортирует историю турнира в CSV или Excel формате
// GET /api/tournaments/:id/history/export?format=csv|xlsx
func (h *TournamentHandler) ExportHistory(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	history, err := h.tournaments.History(id)
	if err != nil {
		handleTournamentError(c, err)
		return
	}

	filename := fmt.Sprintf("tournament_%s_history_%s", id.String()[:8], time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		exportHistoryXLSX(c, history, filename)
	default:
		exportHistoryCSV(c, history, filename)
	}
}

// DeleteTournament удаляет турнир и закрывает его комнату
// DELETE /api/tournaments/:id
func (h *TournamentHandler) DeleteTournament(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)

	if err := h.tournaments.Delete(id); err != nil {
		handleTournamentError(c, err)
		return
	}
	if h.rooms != nil {
		h.rooms.CloseRoom(id)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tournament deleted"})
}

// exportHistoryCSV экспортирует историю в CSV с правильным экранированием спецсимволов
func exportHistoryCSV(c *gin.Context, history []entity.HistoryEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(helper.HistoryExportHeaders)
	for i, entry := range history {
		row := helper.HistoryRow(i, entry)
		row[3] = sanitizeForExcel(row[3])
		writer.Write(row)
	}
}

// exportHistoryXLSX экспортирует историю в Excel через StreamWriter
func exportHistoryXLSX(c *gin.Context, history []entity.HistoryEntry, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "История"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[TournamentHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(helper.HistoryExportHeaders))
	for i, h := range helper.HistoryExportHeaders {
		headers[i] = h
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[TournamentHandler] Ошибка записи заголовков: %v", err)
	}

	for i, entry := range history {
		rowNum := i + 2
		row := helper.HistoryRow(i, entry)
		cells := []interface{}{i + 1, row[1], row[2], sanitizeForExcel(row[3])}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), cells); err != nil {
			log.Printf("[TournamentHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[TournamentHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[TournamentHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleTournamentError преобразует ошибки сервисов в HTTP ответ
func handleTournamentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "error_type": "validation"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "error_type": "unavailable"})
	default:
		log.Printf("[TournamentHandler] Internal server error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// errorCode возвращает код ошибки для клиента WebSocket
func errorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	case errors.Is(err, apperrors.ErrUnavailable):
		return "unavailable"
	default:
		return "internal_error"
	}
}
