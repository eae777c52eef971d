package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/quiz-tournament/pkg/auth"
)

// TicketHeader - альтернативный заголовок с тикетом турнира
const TicketHeader = "X-Tournament-Ticket"

// TicketVerifier проверяет тикет для турнира
type TicketVerifier interface {
	Verify(ticket, tournamentID string) error
}

// ticketFromRequest извлекает тикет из Authorization: Bearer, X-Tournament-Ticket
// или параметра ?ticket= (браузерный WebSocket не умеет ставить заголовки).
func ticketFromRequest(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if ticket := c.GetHeader(TicketHeader); ticket != "" {
		return ticket, true
	}
	if ticket := c.Query("ticket"); ticket != "" {
		return ticket, true
	}
	return "", false
}

// RequireTicket проверяет, что запрос несёт тикет турнира из контекста.
// Должен идти после ExtractUUIDParam.
func RequireTicket(verifier TicketVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tournamentID, ok := c.MustGet(TournamentIDKey).(uuid.UUID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid tournament id", "error_type": "invalid_param"})
			return
		}

		ticket, ok := ticketFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Tournament ticket is required", "error_type": "ticket_missing"})
			return
		}

		if err := verifier.Verify(ticket, tournamentID.String()); err != nil {
			errorType := "ticket_invalid"
			switch {
			case errors.Is(err, auth.ErrTicketExpired):
				errorType = "ticket_expired"
			case errors.Is(err, auth.ErrTicketMismatch):
				errorType = "ticket_mismatch"
			}
			log.Printf("[TicketMiddleware] Тикет отклонён для турнира %s: %v", tournamentID, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired ticket", "error_type": errorType})
			return
		}

		c.Next()
	}
}

// RequireAdminToken пропускает запросы с совпадающим X-Admin-Token.
// Пустой token отключает маршрут.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin endpoints are disabled", "error_type": "admin_disabled"})
			return
		}
		provided := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden", "error_type": "admin_required"})
			return
		}
		c.Next()
	}
}
