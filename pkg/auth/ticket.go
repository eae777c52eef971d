package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TicketUsage - значение claim usage для тикетов турнира
const TicketUsage = "tournament_access"

// Ошибки проверки тикета
var (
	ErrTicketMalformed = errors.New("ticket is malformed")
	ErrTicketExpired   = errors.New("ticket is expired")
	ErrTicketSignature = errors.New("ticket signature is invalid")
	ErrTicketInvalid   = errors.New("ticket validation failed")
	ErrTicketMismatch  = errors.New("ticket was issued for another tournament")
)

// TicketClaims содержит поля тикета доступа к турниру
type TicketClaims struct {
	TournamentID string `json:"tournament_id"`
	Usage        string `json:"usage"`
	jwt.RegisteredClaims
}

// TicketService выдаёт и проверяет тикеты: JWT, подписанные HMAC и
// привязанные к одному турниру. Тикет нужен для команд, меняющих состояние.
type TicketService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTicketService создает сервис тикетов
func NewTicketService(secret string, expirySec int) (*TicketService, error) {
	if secret == "" {
		return nil, fmt.Errorf("ticket secret is required")
	}
	expiry := time.Duration(expirySec) * time.Second
	if expiry <= 0 {
		expiry = 6 * time.Hour
	}
	return &TicketService{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

// Issue создает тикет для турнира
func (s *TicketService) Issue(tournamentID string) (string, error) {
	now := s.now()
	claims := &TicketClaims{
		TournamentID: tournamentID,
		Usage:        TicketUsage,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tournamentID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign ticket: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия тикета
func (s *TicketService) Parse(ticket string) (*TicketClaims, error) {
	claims := &TicketClaims{}
	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(ticket, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTicketMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				log.Printf("[Ticket] Истёк срок действия тикета турнира %s", claims.TournamentID)
				return nil, ErrTicketExpired
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				return nil, ErrTicketSignature
			}
		}
		log.Printf("[Ticket] Ошибка при разборе тикета: %v", err)
		return nil, ErrTicketInvalid
	}

	if !token.Valid || claims.Usage != TicketUsage {
		return nil, ErrTicketInvalid
	}
	return claims, nil
}

// Verify проверяет, что тикет действителен и выдан для указанного турнира
func (s *TicketService) Verify(ticket, tournamentID string) error {
	claims, err := s.Parse(ticket)
	if err != nil {
		return err
	}
	if claims.TournamentID != tournamentID {
		return ErrTicketMismatch
	}
	return nil
}
