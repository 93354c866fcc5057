package domain

import "fmt"

// ValuationKind indica el ratio de valoración que se usa para un índice.
type ValuationKind string

const (
	// ValuationPE usa la ratio precio/beneficio del índice.
	ValuationPE ValuationKind = "pe"
	// ValuationPB usa la ratio precio/valor contable (bancos, inmobiliario...).
	ValuationPB ValuationKind = "pb"
	// ValuationNone indica que el fondo no sigue ningún índice valorable;
	// la decisión se basa solo en el precio.
	ValuationNone ValuationKind = "none"
)

// ParseValuationKind valida el valor del catálogo. Cadena vacía equivale a none.
func ParseValuationKind(s string) (ValuationKind, error) {
	switch ValuationKind(s) {
	case ValuationPE, ValuationPB:
		return ValuationKind(s), nil
	case ValuationNone, "":
		return ValuationNone, nil
	}
	return "", fmt.Errorf("domain.ParseValuationKind: unknown kind %q", s)
}

// StrategyParams son los parámetros numéricos de la estrategia de compra de un fondo.
type StrategyParams struct {
	// Variant es el tag de la variante de estrategia (ver engine.NewStrategy).
	Variant string
	// RatioExponent es la potencia del peso por ratio de valoración.
	// Negativo = ignorar la ratio (escape explícito).
	RatioExponent float64
	// PriceExponent es la potencia del peso por precio.
	PriceExponent float64
	// AvgDays es la ventana en días de calendario para la media de precio
	// y el ranking (365 para fondos índice, 60 para los de gestión activa).
	AvgDays int
	// WatermarkDays es la ventana en días de calendario para la línea de
	// agua del ratio de valoración. 5 años: garantiza que el índice haya
	// pasado por un ciclo completo; 1-2 años queda sesgado por el ciclo
	// sectorial.
	WatermarkDays int
}

// ComponentWeight es un componente de un fondo de fondos con su peso porcentual.
type ComponentWeight struct {
	FID     string
	Percent float64
}

// Instrument describe un fondo del catálogo y su estrategia.
type Instrument struct {
	// FID es el código del fondo.
	FID string
	// Name es el nombre del índice o de la cartera.
	Name string
	// IndexCode es el código del índice que el fondo sigue ("" si no sigue índice).
	IndexCode string
	// Kind es el ratio de valoración del índice.
	Kind ValuationKind
	// FeeRateBp es la comisión de reembolso plana en puntos básicos.
	FeeRateBp float64
	// InceptionYear es el año de lanzamiento: el primer fetch del buy log
	// arranca el 1 de enero de ese año.
	InceptionYear int
	// SplitAdjusted marca fondos cuyo ajuste dividendo/split es multiplicativo
	// (ratio acumulado/unitario) en lugar de aditivo.
	SplitAdjusted bool
	// Components define un fondo de fondos: precios compuestos por los
	// fondos listados con pesos fijos. Vacío para fondos simples.
	Components []ComponentWeight
	// Strategy son los parámetros de la estrategia de compra.
	Strategy StrategyParams
}

// HasIndex devuelve true si el instrumento sigue un índice con ratio valorable.
func (i Instrument) HasIndex() bool {
	return i.IndexCode != "" && i.Kind != ValuationNone
}

// IsComposite devuelve true si el instrumento es un fondo de fondos.
func (i Instrument) IsComposite() bool {
	return len(i.Components) > 0
}

// InceptionDay devuelve el 1 de enero del año de lanzamiento.
func (i Instrument) InceptionDay() Day {
	return NewDay(i.InceptionYear, 1, 1)
}
