package engine

import (
	"fmt"

	"github.com/alejandrodnm/fundbot/internal/domain"
)

// Los tags de variante de estrategia admitidos en el catálogo.
// Conjunto cerrado: añadir una variante exige tocar NewStrategy.
const (
	// VariantRatioPrice pondera por ratio de valoración Y por precio.
	// La variante por defecto para fondos índice.
	VariantRatioPrice = "ratio-price"
	// VariantPriceOnly pondera solo por precio frente a su media.
	// Para fondos de gestión activa sin índice valorable.
	VariantPriceOnly = "price-only"
	// VariantPriceRank pondera por la posición del precio en la ventana.
	// Rinde mejor en fondos de baja volatilidad donde el cociente
	// precio/media apenas se separa de 1.
	VariantPriceRank = "price-rank"
)

// Inputs son los datos ya resueltos que consume una variante de estrategia.
type Inputs struct {
	Price          float64
	AvgPrice       float64
	Ratio          float64
	RatioWatermark float64
	// Rank es el nivel de agua del precio en la ventana (0 = más barato).
	Rank   float64
	Params domain.StrategyParams
}

// Strategy convierte los datos resueltos de un día en un peso de compra.
// Las variantes son funciones puras: toda la resolución de datos (precio
// vigente, medias, líneas de agua) ocurre antes, en el Engine.
type Strategy interface {
	// Name devuelve el tag de la variante.
	Name() string

	// Weight devuelve el peso de compra adimensional en [0, +inf).
	// 0 significa veto: no comprar ese día.
	Weight(in Inputs) float64
}

// NewStrategy devuelve la variante identificada por el tag del catálogo.
func NewStrategy(tag string) (Strategy, error) {
	switch tag {
	case VariantRatioPrice, "":
		return ratioPrice{}, nil
	case VariantPriceOnly:
		return priceOnly{}, nil
	case VariantPriceRank:
		return priceRank{}, nil
	}
	return nil, fmt.Errorf("engine.NewStrategy: unknown strategy variant %q", tag)
}

// ratioPrice multiplica el peso por ratio (techo = línea de agua 30) y el
// peso por precio (techo = media de la ventana corta).
type ratioPrice struct{}

func (ratioPrice) Name() string { return VariantRatioPrice }

func (ratioPrice) Weight(in Inputs) float64 {
	wr := domain.WeightRatio(in.Ratio, in.RatioWatermark, in.Params.RatioExponent)
	wp := domain.WeightPrice(in.Price, in.AvgPrice, in.Params.PriceExponent)
	return domain.CombinedWeight(wr, wp)
}

// priceOnly usa solo el precio frente a la media de la ventana.
type priceOnly struct{}

func (priceOnly) Name() string { return VariantPriceOnly }

func (priceOnly) Weight(in Inputs) float64 {
	return domain.WeightPrice(in.Price, in.AvgPrice, in.Params.PriceExponent)
}

// priceRank usa la posición del precio en la ventana: solo compra en la mitad
// barata, escalando cuadráticamente hacia el fondo.
type priceRank struct{}

func (priceRank) Name() string { return VariantPriceRank }

func (priceRank) Weight(in Inputs) float64 {
	// Nivel de agua invertido: 1 = el más barato de la ventana.
	depth := 1 - in.Rank
	w := depth / 0.5
	if w < 1 {
		return 0
	}
	return w * w
}
