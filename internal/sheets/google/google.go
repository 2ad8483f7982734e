// Package google mirrors budget exports into a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgeto/internal/calendar"
	"budgeto/internal/export"
	"budgeto/internal/log"
)

// Header is the first row of the mirrored sheet.
var Header = []any{"kind", "id", "type", "category", "subcategory", "amount", "currency", "note", "timestamp", "exported_at"}

// Exporter implements export.Sink on top of the Sheets API.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base name without year, e.g. "Export"; the export year is prefixed
	sheetBase string
	logger    *log.Logger
}

var _ export.Sink = (*Exporter)(nil)

// NewExporter creates a Sheets exporter authenticated with service account
// credentials from the environment.
func NewExporter(ctx context.Context, spreadsheetID, sheetBase string, logger *log.Logger) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Export"
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase, logger: logger}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	credentialsJSON, source, err := serviceAccountCredentials(os.Getenv, os.ReadFile)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "creating Google Sheets service",
		"credentials_source", source,
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials(getenv func(string) string, readFile func(string) ([]byte, error)) ([]byte, string, error) {
	inline := strings.TrimSpace(getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), "inline", nil
	case file != "":
		b, err := readFile(file)
		if err != nil {
			return nil, "", fmt.Errorf("read service account file: %w", err)
		}
		return b, file, nil
	default:
		return nil, "", errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Write replaces the contents of "<year> <sheetBase>" with a header row and
// one row per entry, so repeated exports mirror the current state instead
// of piling up.
func (x *Exporter) Write(ctx context.Context, e export.Export) error {
	if x.svc == nil {
		return errors.New("sheets service not initialized")
	}
	at, err := calendar.ParseISO(e.ExportedAt)
	if err != nil {
		return fmt.Errorf("export timestamp: %w", err)
	}
	sheet := yearPrefixedName(x.sheetBase, at.Year())

	rows, err := exportRows(e)
	if err != nil {
		return err
	}
	rows = append([][]any{Header}, rows...)

	all := fmt.Sprintf("%s!A:%c", sheet, 'A'+len(Header)-1)
	if _, err := x.svc.Spreadsheets.Values.Clear(x.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	rng := fmt.Sprintf("%s!A1:%c%d", sheet, 'A'+len(Header)-1, len(rows))
	_, err = x.svc.Spreadsheets.Values.Update(x.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", sheet, err)
	}

	x.logger.InfoContext(ctx, "export mirrored to spreadsheet",
		log.FieldOperation, log.OpExport,
		"sheet", sheet,
		log.FieldCount, len(e.Expenses))
	return nil
}

// exportRows renders amounts in major units with the currency's own digits,
// so "1234.50" rather than a float.
func exportRows(e export.Export) ([][]any, error) {
	rows := make([][]any, 0, len(e.Expenses))
	for _, ex := range e.Expenses {
		major, err := ex.Money.Major()
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", ex.ID, err)
		}
		ts := ""
		if ex.Timestamp != nil {
			ts = calendar.FormatISO(time.UnixMilli(*ex.Timestamp))
		}
		rows = append(rows, []any{
			ex.Kind,
			ex.ID,
			string(ex.Type),
			ex.CategoryID,
			ex.SubcategoryID,
			major.StringFixed(2),
			string(ex.Money.Currency),
			ex.Note,
			ts,
			e.ExportedAt,
		})
	}
	return rows, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
