package quality

import "errors"

// ErrDuplicateAudit rejects a second audit for the same agent run.
var ErrDuplicateAudit = errors.New("La ejecucion de agente ya fue auditada")

// ErrNotFound is returned when the requested audit does not exist.
var ErrNotFound = errors.New("Auditoria no encontrada")
