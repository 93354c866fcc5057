package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyDaily imprime las decisiones del día en el modo configurado.
func (c *Console) NotifyDaily(_ context.Context, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		fmt.Fprintf(c.out, "[%s] no decisions computed\n", time.Now().Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printDailyTable(decisions)
	} else {
		c.printDailyCompact(decisions)
	}
	return nil
}

// printDailyCompact imprime lo esencial en una línea por fondo con compra.
func (c *Console) printDailyCompact(decisions []domain.Decision) {
	now := time.Now().Format("15:04:05")
	buys := countBuys(decisions)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d funds → buy:%d", now, len(decisions), buys)

	for _, d := range decisions {
		if !d.Record.IsBuy() {
			continue
		}
		diag := d.Diagnostics
		fmt.Fprintf(&sb, " | %s ¥%d @%.4f w%.2f",
			fundLabel(diag), d.Record.Capital, diag.Price, diag.Weight)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printDailyTable imprime la tabla completa con los diagnósticos de cada fondo.
func (c *Console) printDailyTable(decisions []domain.Decision) {
	now := time.Now().Format("15:04:05")
	buys := countBuys(decisions)

	fmt.Fprintf(c.out, "\n[%s] %d funds — buy:%d skip:%d\n",
		now, len(decisions), buys, len(decisions)-buys)

	table := tablewriter.NewWriter(c.out)
	table.Header("Fund", "Date", "Ratio", "WM30/50/70/90", "Price", "Avg", "Rank", "Weight", "Capital", "Amount", "Water", "Reason")

	for _, d := range decisions {
		diag := d.Diagnostics

		capital := "-"
		amount := "-"
		if d.Record.IsBuy() {
			capital = fmt.Sprintf("%d", d.Record.Capital)
			amount = fmt.Sprintf("%.2f", d.Record.Amount)
		}

		table.Append(
			fundLabel(diag),
			d.Record.Date.String(),
			ratioLabel(diag.Ratio),
			watermarkLabel(diag),
			fmt.Sprintf("%.4f", diag.Price),
			fmt.Sprintf("%.4f", diag.AvgPrice),
			fmt.Sprintf("%.2f", diag.Rank),
			fmt.Sprintf("%.4f", diag.Weight),
			capital,
			amount,
			waterLabel(diag),
			diag.Reason,
		)
	}

	table.Render()

	fmt.Fprintln(c.out, "  Ratio = valoración vigente | WM = percentiles 30/50/70/90 de la ventana larga")
	fmt.Fprintln(c.out, "  Rank: 0 = precio más barato de la ventana | Water = rango del capital entre los históricos")
}

// NotifyHistory imprime los diagnósticos almacenados de un fondo, en orden
// cronológico tal como llegan del histórico.
func (c *Console) NotifyHistory(_ context.Context, diags []domain.Diagnostics) error {
	if len(diags) == 0 {
		fmt.Fprintln(c.out, "  No stored decisions for the requested range.")
		return nil
	}

	fmt.Fprintf(c.out, "\n%s — %d stored decisions (%s to %s)\n",
		fundLabel(diags[0]), len(diags), diags[0].Date, diags[len(diags)-1].Date)

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Ratio", "WM30/50/70/90", "Price", "Avg", "Rank", "Weight", "Water", "Reason")

	for _, diag := range diags {
		table.Append(
			diag.Date.String(),
			ratioLabel(diag.Ratio),
			watermarkLabel(diag),
			fmt.Sprintf("%.4f", diag.Price),
			fmt.Sprintf("%.4f", diag.AvgPrice),
			fmt.Sprintf("%.2f", diag.Rank),
			fmt.Sprintf("%.4f", diag.Weight),
			waterLabel(diag),
			diag.Reason,
		)
	}
	table.Render()
	return nil
}

// NotifyBacktest imprime los resultados de la simulación.
func (c *Console) NotifyBacktest(_ context.Context, results []domain.BacktestResult) error {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "\n  No backtest results available.")
		return nil
	}

	fmt.Fprintf(c.out, "\n=== BACKTEST — %s to %s ===\n\n",
		results[0].Begin, results[0].End)

	table := tablewriter.NewWriter(c.out)
	table.Header("Fund", "Days", "Buys", "Capital", "Amount", "AvgCost", "Final", "Return%", "Best%", "Best day")

	for _, r := range results {
		table.Append(
			r.FID,
			fmt.Sprintf("%d", r.Days),
			fmt.Sprintf("%d", r.BuyDays),
			fmt.Sprintf("%d", r.TotalCapital),
			fmt.Sprintf("%.2f", r.TotalAmount),
			fmt.Sprintf("%.4f", r.AverageCost),
			fmt.Sprintf("%.4f", r.FinalPrice),
			fmt.Sprintf("%.2f", r.FinalReturnPct),
			fmt.Sprintf("%.2f", r.BestGainPct),
			r.BestGainDay.String(),
		)
	}
	table.Render()

	for _, r := range results {
		fmt.Fprintf(c.out, "\n  %s (%s → %s)\n", r.FID, r.Begin, r.End)
		fmt.Fprintf(c.out, "     Trading days: %d (%d with buys)\n", r.Days, r.BuyDays)
		fmt.Fprintf(c.out, "     Invested:     %d for %.2f shares (avg cost %.4f)\n",
			r.TotalCapital, r.TotalAmount, r.AverageCost)
		fmt.Fprintf(c.out, "     Final price:  %.4f → return %.2f%% net of fees\n",
			r.FinalPrice, r.FinalReturnPct)
		fmt.Fprintf(c.out, "     Best exit:    %.2f%% on %s\n", r.BestGainPct, r.BestGainDay)
	}
	fmt.Fprintln(c.out)
	return nil
}

// --- helpers ---

func countBuys(decisions []domain.Decision) int {
	n := 0
	for _, d := range decisions {
		if d.Record.IsBuy() {
			n++
		}
	}
	return n
}

func fundLabel(diag domain.Diagnostics) string {
	if diag.Name != "" {
		return fmt.Sprintf("%s %s", diag.FID, truncate(diag.Name, 16))
	}
	return diag.FID
}

func ratioLabel(ratio float64) string {
	if ratio <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", ratio)
}

func watermarkLabel(diag domain.Diagnostics) string {
	if diag.Watermark30 <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f/%.2f/%.2f/%.2f",
		diag.Watermark30, diag.Watermark50, diag.Watermark70, diag.Watermark90)
}

func waterLabel(diag domain.Diagnostics) string {
	if diag.BuyWaterSamples <= 20 {
		return fmt.Sprintf("n/a (%d)", diag.BuyWaterSamples)
	}
	return fmt.Sprintf("%.2f", diag.BuyWater)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
