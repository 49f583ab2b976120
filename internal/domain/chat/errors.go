package chat

import "errors"

// ErrNotFound is returned when the requested message does not exist.
var ErrNotFound = errors.New("Mensaje de chat no encontrado")
