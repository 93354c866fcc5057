package domain

import "math"

// WeightRatio calcula el peso de compra según la ratio de valoración (PE/PB).
// La línea de agua (watermark) del percentil 30 hace de techo: por encima no se
// compra; por debajo, cuanto más barato, más se compra.
//
// Fórmula: w = (watermark / current) ^ exponent
//   - current: ratio de valoración vigente (PE o PB)
//   - watermark: valor del percentil 30 en la ventana histórica
//   - exponent: potencia que endurece la curva cerca del techo (típico 2)
//
// Devuelve 0 si current > watermark o current <= 0 (veto, no error).
// Devuelve 1 si exponent < 0: escape explícito para ignorar la ratio.
func WeightRatio(current, watermark, exponent float64) float64 {
	if exponent < 0 {
		return 1
	}
	if current > watermark || current <= 0 {
		return 0
	}
	return math.Pow(watermark/current, exponent)
}

// WeightPrice calcula el peso de compra según el precio frente a su media móvil.
// La media de 1 año mide abaratamiento "local" (tendencia corta, ya ajustada
// por dividendos), mientras la ratio mide abaratamiento "estructural" (posición
// en el ciclo de valoración).
//
// Fórmula: w = (average / current) ^ exponent
//   - exponent típico 4: el backtest sobre SSE 50 muestra que este peso pesa
//     mucho más en el resultado que el de la ratio
//
// Devuelve 0 si current > average o current <= 0 (veto, no error).
// Devuelve 1 si exponent < 0.
func WeightPrice(current, average, exponent float64) float64 {
	if exponent < 0 {
		return 1
	}
	if current > average || current <= 0 {
		return 0
	}
	return math.Pow(average/current, exponent)
}

// CombinedWeight multiplica ambos pesos: cualquiera de las dos señales puede
// vetar la compra (peso 0), y solo si ambas coinciden en "barato" se escala.
func CombinedWeight(ratioWeight, priceWeight float64) float64 {
	return ratioWeight * priceWeight
}

// CapitalFor convierte un peso en capital a invertir. Siempre techo (ceil),
// nunca suelo: un peso distinto de cero jamás redondea a capital cero.
func CapitalFor(base, weight float64) int {
	if weight <= 0 || base <= 0 {
		return 0
	}
	return int(math.Ceil(base * weight))
}

// AmountFor calcula las participaciones compradas, redondeadas a 2 decimales.
// Devuelve 0 si el precio no es positivo.
func AmountFor(capital int, price float64) float64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	return math.Round(float64(capital)/price*100) / 100
}
