package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketService_RequiresSecret(t *testing.T) {
	_, err := NewTicketService("", 60)
	assert.Error(t, err)

	s, err := NewTicketService("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, s.expiry, "срок действия по умолчанию")
}

func TestTicketService_IssueAndVerify(t *testing.T) {
	s, err := NewTicketService("test-secret", 3600)
	require.NoError(t, err)

	ticket, err := s.Issue("t-1")
	require.NoError(t, err)

	claims, err := s.Parse(ticket)
	require.NoError(t, err)
	assert.Equal(t, "t-1", claims.TournamentID)
	assert.Equal(t, TicketUsage, claims.Usage)

	assert.NoError(t, s.Verify(ticket, "t-1"))
	assert.ErrorIs(t, s.Verify(ticket, "t-2"), ErrTicketMismatch, "тикет привязан к одному турниру")
}

func TestTicketService_Expired(t *testing.T) {
	s, err := NewTicketService("test-secret", 60)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	ticket, err := s.Issue("t-1")
	require.NoError(t, err)

	_, err = s.Parse(ticket)
	assert.ErrorIs(t, err, ErrTicketExpired)
}

func TestTicketService_WrongSecret(t *testing.T) {
	issuer, err := NewTicketService("secret-a", 60)
	require.NoError(t, err)
	verifier, err := NewTicketService("secret-b", 60)
	require.NoError(t, err)

	ticket, err := issuer.Issue("t-1")
	require.NoError(t, err)

	_, err = verifier.Parse(ticket)
	assert.ErrorIs(t, err, ErrTicketSignature)
}

func TestTicketService_Malformed(t *testing.T) {
	s, err := NewTicketService("secret", 60)
	require.NoError(t, err)

	_, err = s.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrTicketMalformed)
}

func TestTicketService_RejectsOtherUsage(t *testing.T) {
	s, err := NewTicketService("secret", 60)
	require.NoError(t, err)

	claims := &TicketClaims{
		TournamentID: "t-1",
		Usage:        "websocket_auth",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	ticket, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Parse(ticket)
	assert.ErrorIs(t, err, ErrTicketInvalid)
}
