package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/models"
)

const (
	parseErrorMessage = "Error parsing file. Ensure it's a valid .xlsx, .csv, .json or .parquet"
	syncErrorMessage  = "Failed to sync inventory. Ensure columns are: Part Number, Part Name, Station"
)

// Column aliases, checked in order. The first non-empty trimmed value wins.
var (
	PartNumberAliases = []string{"partNumber", "Part Number", "PN", "codigo", "part number", "código", "Part No"}
	PartNameAliases   = []string{"partName", "Part Name", "Name", "nome", "part name", "descricao"}
	StationAliases    = []string{"station", "Station", "posto", "estacao", "estação"}
)

// Importer reconciles spreadsheet-like files into the persisted catalog.
type Importer struct {
	repo  Repository
	store *Store
}

func NewImporter(repo Repository, store *Store) *Importer {
	return &Importer{repo: repo, store: store}
}

// Import parses the whole file, upserts the accepted rows and refreshes the store.
// It returns the number of accepted rows; zero accepted rows writes nothing.
func (i *Importer) Import(ctx context.Context, filename string, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindCatalogParse, "catalog.import", parseErrorMessage, err)
	}

	format := DetectFormat(filename, data)
	rows, err := ReadRows(format, data)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindCatalogParse, "catalog.import", parseErrorMessage, err)
	}

	items := NormalizeRows(rows)
	if len(items) == 0 {
		slog.Warn("Catalog file had no usable rows", "file", filename, "format", format, "rows", len(rows))
		return 0, nil
	}

	if err := i.repo.UpsertCatalogRows(ctx, items); err != nil {
		return 0, apperrors.Wrap(apperrors.KindPersistence, "catalog.import", syncErrorMessage, err)
	}

	if err := i.store.Refresh(ctx); err != nil {
		slog.Error("Failed to refresh catalog after import", "error", err)
	}

	slog.Info("Catalog imported", "file", filename, "format", format, "rows", len(rows), "accepted", len(items))
	return len(items), nil
}

// NormalizeRows resolves aliased columns and drops rows without a usable part number.
func NormalizeRows(rows []Row) []models.CatalogItem {
	items := make([]models.CatalogItem, 0, len(rows))
	for _, row := range rows {
		item := models.CatalogItem{
			PartNumber: firstValue(row, PartNumberAliases),
			PartName:   firstValue(row, PartNameAliases),
			Station:    firstValue(row, StationAliases),
		}
		if item.PartNumber == "" || item.PartNumber == "undefined" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func firstValue(row Row, aliases []string) string {
	for _, alias := range aliases {
		v, ok := row[alias]
		if !ok {
			continue
		}
		if s := strings.TrimSpace(CellString(v)); s != "" {
			return s
		}
	}
	return ""
}

// Summary describes an import outcome for CLI output.
func Summary(accepted int) string {
	if accepted == 0 {
		return "no catalog rows imported"
	}
	return fmt.Sprintf("%d items integrated into catalog", accepted)
}
