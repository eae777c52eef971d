package tournament

import (
	"fmt"

	apperrors "github.com/yourusername/quiz-tournament/internal/pkg/errors"
)

// Ошибки турнира. Все они оборачивают общие ошибки приложения,
// поэтому errors.Is(err, apperrors.ErrValidation) и т.п. работает на уровне хендлеров.
var (
	ErrInvalidPlayerCount = fmt.Errorf("%w: player count must be a power of two and at least 2", apperrors.ErrValidation)
	ErrTooManyPlayers     = fmt.Errorf("%w: player count exceeds the configured maximum", apperrors.ErrValidation)
	ErrInvalidChoice      = fmt.Errorf("%w: choice index is out of range", apperrors.ErrValidation)
	ErrMatchOutOfRange    = fmt.Errorf("%w: match index is out of range", apperrors.ErrValidation)

	ErrNotStarted           = fmt.Errorf("%w: tournament has not been started", apperrors.ErrConflict)
	ErrAlreadyStarted       = fmt.Errorf("%w: tournament has already been started", apperrors.ErrConflict)
	ErrMatchInProgress      = fmt.Errorf("%w: current match is still in progress", apperrors.ErrConflict)
	ErrNoActiveQuestion     = fmt.Errorf("%w: no question is awaiting an answer", apperrors.ErrConflict)
	ErrMatchNotPlayable     = fmt.Errorf("%w: match has an unresolved slot", apperrors.ErrConflict)
	ErrMatchAlreadyResolved = fmt.Errorf("%w: match already has a winner", apperrors.ErrConflict)
	ErrNotParticipant       = fmt.Errorf("%w: winner does not play in this match", apperrors.ErrValidation)
)
