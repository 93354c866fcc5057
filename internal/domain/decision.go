package domain

import "sort"

// DecisionRecord es la decisión de compra de un fondo para una fecha.
// Inmutable una vez decidida, salvo la de "hoy", que refleja una estimación
// intradía todavía en movimiento y nunca se persiste.
type DecisionRecord struct {
	Date Day
	// Capital es el importe a suscribir en unidades enteras de moneda.
	Capital int
	// Amount son las participaciones estimadas, redondeadas a 2 decimales.
	Amount float64
}

// IsBuy devuelve true si la decisión implica comprar.
func (r DecisionRecord) IsBuy() bool { return r.Capital > 0 }

// BuyLog es el registro de decisiones de un fondo, una por fecha decidida.
type BuyLog map[Day]DecisionRecord

// MaxDay devuelve la fecha más reciente del log. ok=false si está vacío.
func (l BuyLog) MaxDay() (Day, bool) {
	var max Day
	found := false
	for d := range l {
		if !found || d.After(max) {
			max = d
			found = true
		}
	}
	return max, found
}

// Sorted devuelve las decisiones ordenadas ascendentemente por fecha.
func (l BuyLog) Sorted() []DecisionRecord {
	recs := make([]DecisionRecord, 0, len(l))
	for _, r := range l {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	return recs
}

// Merge incorpora las decisiones nuevas sobre las existentes.
// Las nuevas prevalecen en caso de colisión (en la extensión incremental no
// debería haber ninguna).
func (l BuyLog) Merge(newer BuyLog) {
	for d, r := range newer {
		l[d] = r
	}
}

// BuyWater calcula la "línea de agua" del capital de hoy: su rango normalizado
// entre los capitales no nulos registrados históricamente. Señal puramente
// cualitativa para el informe; no alimenta el peso de compra.
//
// Devuelve (0, n) con menos de 21 muestras: el rango no es significativo.
func BuyWater(capitals []int) (water float64, samples int) {
	n := len(capitals)
	if n <= 20 {
		return 0, n
	}
	current := capitals[n-1]
	if current == 0 {
		return 0, n
	}
	sorted := make([]int, n)
	copy(sorted, capitals)
	sort.Ints(sorted)
	idx := sort.SearchInts(sorted, current)
	return float64(idx) / float64(n), n
}

// Diagnostics acompaña cada decisión con los datos que consume la capa de informes.
type Diagnostics struct {
	FID   string
	Name  string
	Date  Day
	Ratio float64 // ratio de valoración vigente (más reciente anterior a la fecha)
	// Líneas de agua de la ratio en la ventana larga.
	Watermark30 float64
	Watermark50 float64
	Watermark70 float64
	Watermark90 float64
	// Precio vigente y media de la ventana corta.
	Price    float64
	AvgPrice float64
	// Rank es la posición del precio vigente en la ventana corta (0 = el más
	// barato, cercano a 1 = el más caro), con RankWindow muestras.
	Rank       float64
	RankWindow int
	// Peso combinado y sus factores.
	RatioWeight float64
	PriceWeight float64
	Weight      float64
	// Línea de agua del buy log (rango del capital de hoy entre los históricos).
	BuyWater        float64
	BuyWaterSamples int
	// Reason indica por qué no se compra ("" si la decisión es válida).
	Reason string
}

// Decision empaqueta el registro con sus diagnósticos.
type Decision struct {
	Record      DecisionRecord
	Diagnostics Diagnostics
}

// BacktestResult es el resumen de una simulación longtime.
type BacktestResult struct {
	FID          string
	Begin, End   Day
	TotalCapital int
	TotalAmount  float64
	// BestGain es el mayor beneficio latente alcanzado y su fecha: el mejor
	// punto de liquidación a posteriori, para evaluar la estrategia.
	BestGainPct float64
	BestGainDay Day
	// FinalReturnPct es la rentabilidad final neta de comisiones, en %.
	FinalReturnPct float64
	// AverageCost es el coste medio por participación.
	AverageCost float64
	// FinalPrice es el precio del último día hábil del rango.
	FinalPrice float64
	// Days es el número de días hábiles simulados.
	Days int
	// BuyDays es el número de días con compra efectiva.
	BuyDays int
}
