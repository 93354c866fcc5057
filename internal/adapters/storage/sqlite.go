package storage

// sqlite.go — histórico de decisiones en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `runs`: una fila por ejecución (diaria o backtest), identificada por UUID.
//   - `decisions`: UNA fila por (fid, fecha) con el diagnóstico completo
//     (UPSERT). Repetir una ejecución sobre el mismo día no duplica filas,
//     solo refresca el diagnóstico.
//   - Prune automático al arrancar: runs > 90d. Las decisiones se conservan
//     — son el histórico que consulta el informe.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/fundbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por ejecución del motor
CREATE TABLE IF NOT EXISTS runs (
    run_id    TEXT PRIMARY KEY,
    mode      TEXT     NOT NULL,
    ran_at    DATETIME NOT NULL,
    decisions INTEGER  NOT NULL DEFAULT 0,
    buys      INTEGER  NOT NULL DEFAULT 0
);

-- Una fila por (fondo, fecha), sin duplicados
CREATE TABLE IF NOT EXISTS decisions (
    fid          TEXT NOT NULL,
    date         TEXT NOT NULL,
    name         TEXT,
    capital      INTEGER NOT NULL DEFAULT 0,
    amount       REAL    NOT NULL DEFAULT 0,
    ratio        REAL    NOT NULL DEFAULT 0,
    watermark30  REAL    NOT NULL DEFAULT 0,
    watermark50  REAL    NOT NULL DEFAULT 0,
    watermark70  REAL    NOT NULL DEFAULT 0,
    watermark90  REAL    NOT NULL DEFAULT 0,
    price        REAL    NOT NULL DEFAULT 0,
    avg_price    REAL    NOT NULL DEFAULT 0,
    rank         REAL    NOT NULL DEFAULT 0,
    ratio_weight REAL    NOT NULL DEFAULT 0,
    price_weight REAL    NOT NULL DEFAULT 0,
    weight       REAL    NOT NULL DEFAULT 0,
    buy_water    REAL    NOT NULL DEFAULT 0,
    reason       TEXT,
    run_id       TEXT    NOT NULL,
    updated_at   DATETIME NOT NULL,
    PRIMARY KEY (fid, date)
);

CREATE INDEX IF NOT EXISTS idx_runs_at        ON runs(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_date ON decisions(date DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_fid  ON decisions(fid, date);
`

// runs: 90 días de retención; decisiones se conservan indefinidamente
const retentionRuns = 90 * 24 * time.Hour

// SQLiteHistory implementa ports.History usando SQLite.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia ejecuciones antiguas.
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteHistory: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteHistory: apply schema: %w", err)
	}

	s := &SQLiteHistory{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el resumen de la ejecución y hace upsert de cada decisión
// con su diagnóstico completo.
func (s *SQLiteHistory) SaveRun(ctx context.Context, runID, mode string, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	now := time.Now().UTC()
	buys := 0
	for _, d := range decisions {
		if d.Record.IsBuy() {
			buys++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, mode, ran_at, decisions, buys) VALUES (?, ?, ?, ?, ?)`,
		runID, mode, now, len(decisions), buys,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions
			(fid, date, name, capital, amount, ratio,
			 watermark30, watermark50, watermark70, watermark90,
			 price, avg_price, rank, ratio_weight, price_weight, weight,
			 buy_water, reason, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fid, date) DO UPDATE SET
			name         = excluded.name,
			capital      = excluded.capital,
			amount       = excluded.amount,
			ratio        = excluded.ratio,
			watermark30  = excluded.watermark30,
			watermark50  = excluded.watermark50,
			watermark70  = excluded.watermark70,
			watermark90  = excluded.watermark90,
			price        = excluded.price,
			avg_price    = excluded.avg_price,
			rank         = excluded.rank,
			ratio_weight = excluded.ratio_weight,
			price_weight = excluded.price_weight,
			weight       = excluded.weight,
			buy_water    = excluded.buy_water,
			reason       = excluded.reason,
			run_id       = excluded.run_id,
			updated_at   = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		diag := d.Diagnostics
		if _, err := stmt.ExecContext(ctx,
			diag.FID,
			d.Record.Date.String(),
			diag.Name,
			d.Record.Capital,
			d.Record.Amount,
			diag.Ratio,
			diag.Watermark30,
			diag.Watermark50,
			diag.Watermark70,
			diag.Watermark90,
			diag.Price,
			diag.AvgPrice,
			diag.Rank,
			diag.RatioWeight,
			diag.PriceWeight,
			diag.Weight,
			diag.BuyWater,
			diag.Reason,
			runID,
			now,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: upsert %s %s: %w", diag.FID, d.Record.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetDecisions devuelve los diagnósticos de un fondo en el rango dado,
// ordenados por fecha ascendente.
func (s *SQLiteHistory) GetDecisions(ctx context.Context, fid string, from, to time.Time) ([]domain.Diagnostics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fid, date, name, ratio,
		       watermark30, watermark50, watermark70, watermark90,
		       price, avg_price, rank, ratio_weight, price_weight, weight,
		       buy_water, reason
		FROM decisions
		WHERE fid = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC
	`, fid, from.Format(domain.DayLayout), to.Format(domain.DayLayout))
	if err != nil {
		return nil, fmt.Errorf("storage.GetDecisions: query: %w", err)
	}
	defer rows.Close()

	var diags []domain.Diagnostics
	for rows.Next() {
		var diag domain.Diagnostics
		var date string

		if err := rows.Scan(
			&diag.FID,
			&date,
			&diag.Name,
			&diag.Ratio,
			&diag.Watermark30,
			&diag.Watermark50,
			&diag.Watermark70,
			&diag.Watermark90,
			&diag.Price,
			&diag.AvgPrice,
			&diag.Rank,
			&diag.RatioWeight,
			&diag.PriceWeight,
			&diag.Weight,
			&diag.BuyWater,
			&diag.Reason,
		); err != nil {
			return nil, fmt.Errorf("storage.GetDecisions: scan row: %w", err)
		}

		diag.Date, _ = domain.ParseDay(date)
		diags = append(diags, diag)
	}

	return diags, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}

// pruneOld elimina ejecuciones antiguas para mantener la DB ligera.
func (s *SQLiteHistory) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE ran_at < ?`, cutoff)
}
