package episode

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested episode does not exist.
var ErrNotFound = errors.New("Episodio no encontrado")

// InvalidTransitionError rejects a transition request: illegal next stage,
// missing priority_risk, or a caller-supplied disposition. The message is
// operator-facing and names both stages.
type InvalidTransitionError struct {
	From    Stage
	To      Stage
	Message string
}

func (e *InvalidTransitionError) Error() string {
	return e.Message
}

func newIllegalTransition(from, to Stage) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:    from,
		To:      to,
		Message: fmt.Sprintf("Transicion invalida desde '%s' hacia '%s'.", from, to),
	}
}

func newMissingPriorityRisk(from, to Stage) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:    from,
		To:      to,
		Message: "Debe indicar `priority_risk` al salir de triaje.",
	}
}

func newDispositionNotAllowed(from, to Stage) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:    from,
		To:      to,
		Message: "No indicar `disposition` antes de etapa final de destino.",
	}
}
