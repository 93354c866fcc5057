// Package buylog implementa ports.BuyLogRepo sobre archivos planos: un
// archivo por fondo, una línea por fecha decidida.
package buylog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alejandrodnm/fundbot/internal/domain"
	"github.com/alejandrodnm/fundbot/internal/ports"
)

// Formato de línea: fid,YYYY-MM-DD,capital,amount
// capital como entero, amount como decimal; líneas ordenadas por fecha.
const fieldsPerLine = 4

// FileRepo persiste los buy logs en un directorio, un archivo por fondo.
type FileRepo struct {
	dir string
}

// NewFileRepo crea el repositorio sobre el directorio dado, creándolo si no existe.
func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("buylog.NewFileRepo: %w", err)
	}
	return &FileRepo{dir: dir}, nil
}

func (r *FileRepo) path(fid string) string {
	return filepath.Join(r.dir, "buylog."+fid)
}

// Load implementa ports.BuyLogRepo. Distingue explícitamente "no existe"
// (ErrLogNotFound: primer fetch) de "existe pero corrupto" (*ParseError:
// recomputar) de cualquier otro error de I/O (propagar tal cual).
func (r *FileRepo) Load(fid string) (domain.BuyLog, error) {
	path := r.path(fid)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("buylog.Load: %s: %w", fid, ports.ErrLogNotFound)
		}
		return nil, fmt.Errorf("buylog.Load: %s: %w", fid, err)
	}

	log := make(domain.BuyLog)
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, &ports.ParseError{Path: path, Line: i + 1, Err: err}
		}
		log[rec.Date] = rec
	}
	return log, nil
}

// Save implementa ports.BuyLogRepo: reescribe el archivo completo, ordenado
// ascendentemente por fecha. La escritura es atómica (tmp + rename) para que
// un proceso interrumpido nunca deje un log a medias.
func (r *FileRepo) Save(fid string, log domain.BuyLog) error {
	var sb strings.Builder
	for _, rec := range log.Sorted() {
		sb.WriteString(fid)
		sb.WriteByte(',')
		sb.WriteString(rec.Date.String())
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(rec.Capital))
		sb.WriteByte(',')
		sb.WriteString(formatAmount(rec.Amount))
		sb.WriteByte('\n')
	}

	path := r.path(fid)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("buylog.Save: %s: %w", fid, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("buylog.Save: %s: %w", fid, err)
	}
	return nil
}

func parseLine(line string) (domain.DecisionRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) != fieldsPerLine {
		return domain.DecisionRecord{}, fmt.Errorf("expected %d fields, got %d", fieldsPerLine, len(fields))
	}
	date, err := domain.ParseDay(fields[1])
	if err != nil {
		return domain.DecisionRecord{}, err
	}
	capital, err := strconv.Atoi(fields[2])
	if err != nil {
		return domain.DecisionRecord{}, fmt.Errorf("bad capital %q: %w", fields[2], err)
	}
	amount, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return domain.DecisionRecord{}, fmt.Errorf("bad amount %q: %w", fields[3], err)
	}
	return domain.DecisionRecord{Date: date, Capital: capital, Amount: amount}, nil
}

// formatAmount escribe el importe con los decimales justos.
// La misma entrada produce siempre los mismos bytes: extender el log dos
// veces hasta la misma fecha deja el archivo idéntico.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
