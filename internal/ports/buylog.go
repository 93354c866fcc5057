package ports

import (
	"errors"
	"fmt"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// ErrLogNotFound indica que el fondo todavía no tiene buy log persistido
// (primer fetch). No es un fallo: dispara el recómputo completo desde el año
// de lanzamiento.
var ErrLogNotFound = errors.New("buy log not found")

// ParseError indica que el buy log persistido existe pero no se pudo parsear.
// Se recupera recomputando desde el lanzamiento y sobreescribiendo el archivo.
// Cualquier otro error de I/O NO debe disfrazarse de ParseError: debe propagarse.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("corrupt buy log %s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BuyLogRepo persiste el buy log de cada fondo: un registro por fecha decidida.
// Recurso de escritor único por fondo; la exclusión entre procesos es externa.
type BuyLogRepo interface {
	// Load carga el buy log del fondo. Devuelve ErrLogNotFound si no existe
	// y *ParseError si existe pero está corrupto.
	Load(fid string) (domain.BuyLog, error)

	// Save persiste el buy log completo, ordenado ascendentemente por fecha.
	Save(fid string, log domain.BuyLog) error
}
