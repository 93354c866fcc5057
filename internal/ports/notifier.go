package ports

import (
	"context"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// Notifier presenta los resultados al usuario.
type Notifier interface {
	// NotifyDaily muestra las decisiones del día, las de compra primero.
	// En la implementación de consola, imprime una línea compacta o una
	// tabla completa de diagnósticos.
	NotifyDaily(ctx context.Context, decisions []domain.Decision) error

	// NotifyBacktest muestra los resultados de los backtests.
	NotifyBacktest(ctx context.Context, results []domain.BacktestResult) error
}
