package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// History persiste el histórico de decisiones con sus diagnósticos, para la
// capa de informes.
type History interface {
	// SaveRun registra el resumen de una ejecución (diaria o backtest).
	SaveRun(ctx context.Context, runID, mode string, decisions []domain.Decision) error

	// GetDecisions devuelve los diagnósticos registrados para un fondo en el
	// rango de tiempo dado, ordenados por fecha.
	GetDecisions(ctx context.Context, fid string, from, to time.Time) ([]domain.Diagnostics, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
