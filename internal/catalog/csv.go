package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "gamecatalog/pkg/errors"
	"gamecatalog/pkg/logger"
	"gamecatalog/pkg/models"
)

// CSVHeader is the column order ExportCSV writes. ImportCSV matches columns
// by name, so extra or reordered columns are fine.
var CSVHeader = []string{
	"title", "description", "genre", "platform", "developer", "publisher",
	"release_date", "price", "cover_image_url", "screenshots",
}

// screenshotSep separates screenshot URLs inside the screenshots column.
const screenshotSep = "|"

type ImportReport struct {
	Created    int
	Duplicates []string
	// Invalid maps a 1-based data row number to the validation message.
	Invalid map[int]string
}

// ImportCSV creates one persisted entry per data row through Create, so the
// usual validation and title uniqueness apply. Duplicate titles and invalid
// rows are reported and skipped; any other error aborts the import.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportReport, error) {
	report := ImportReport{Invalid: map[int]string{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return report, fmt.Errorf("read header: %w", err)
	}
	if _, ok := header["title"]; !ok {
		return report, apperrors.Validation("csv header has no title column", nil)
	}

	for n := 1; ; n++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("read row %d: %w", n, err)
		}
		if len(row) == 0 {
			continue
		}

		in, err := rowInput(header, row)
		if err != nil {
			report.Invalid[n] = err.Error()
			continue
		}

		_, err = s.Create(ctx, in)
		switch {
		case err == nil:
			report.Created++
		case apperrors.Is(err, apperrors.CodeDuplicateTitle):
			report.Duplicates = append(report.Duplicates, in.Title)
		case apperrors.Is(err, apperrors.CodeValidation):
			ae, _ := apperrors.As(err)
			report.Invalid[n] = ae.Message
		default:
			return report, err
		}
	}

	logger.Ctx(ctx).Info().
		Int("created", report.Created).
		Int("duplicates", len(report.Duplicates)).
		Int("invalid", len(report.Invalid)).
		Msg("csv import finished")
	return report, nil
}

func rowInput(header map[string]int, row []string) (CreateInput, error) {
	in := CreateInput{
		Title:         valueAt(header, row, "title"),
		Description:   valueAt(header, row, "description"),
		CoverImageURL: valueAt(header, row, "cover_image_url"),
		Genre:         optionalAt(header, row, "genre"),
		Platform:      optionalAt(header, row, "platform"),
		Developer:     optionalAt(header, row, "developer"),
		Publisher:     optionalAt(header, row, "publisher"),
		ReleaseDate:   optionalAt(header, row, "release_date"),
	}
	if raw := valueAt(header, row, "price"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return in, fmt.Errorf("price must be a number, got %q", raw)
		}
		a := Amount(f)
		in.Price = &a
	}
	if raw := valueAt(header, row, "screenshots"); raw != "" {
		in.Screenshots = strings.Split(raw, screenshotSep)
	}
	return in, nil
}

// ExportCSV writes every persisted entry, newest first, and returns the number
// of rows written. Static entries are not exported.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.List(ctx, ListParams{}, "")
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}

	n := 0
	for _, e := range entries {
		if e.IsStatic {
			continue
		}
		if err := cw.Write(entryRow(e)); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}

func entryRow(e models.CatalogEntry) []string {
	price := ""
	if e.Price != nil {
		price = strconv.FormatFloat(*e.Price, 'f', -1, 64)
	}
	shots := make([]string, 0, len(e.Screenshots))
	for _, sc := range e.Screenshots {
		shots = append(shots, sc.URL)
	}
	return []string{
		e.Title,
		e.Description,
		deref(e.Genre),
		deref(e.Platform),
		deref(e.Developer),
		deref(e.Publisher),
		deref(e.ReleaseDate),
		price,
		deref(e.CoverImageURL),
		strings.Join(shots, screenshotSep),
	}
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func optionalAt(header map[string]int, row []string, key string) *string {
	v := valueAt(header, row, key)
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
