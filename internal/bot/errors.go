package bot

import (
	"errors"

	"aforo/internal/service"
)

// userMessage is the reply for a failed command. A nil err gets the generic
// reply.
func userMessage(err error) string {
	if err == nil {
		return genericFailure
	}
	if errors.Is(err, errBadDate) || errors.Is(err, service.ErrValidation) {
		return "⚠️ Fecha no válida. Usa hoy, mañana, AAAA-MM-DD o DD/MM/AAAA."
	}
	return genericFailure
}

const genericFailure = "❌ No se pudo consultar la ocupación. Inténtalo de nuevo más tarde."
