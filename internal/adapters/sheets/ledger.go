package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/metrics"
)

// Ledger implements the ledger contract on a Google Sheets tab.
type Ledger struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
	log           zerolog.Logger
}

// New builds the sheets ledger.
func New(ctx context.Context, credentialsFile, spreadsheetID, tab string, logger zerolog.Logger) (*Ledger, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheetsapi.SpreadsheetsScope))
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is empty")
	}
	if tab == "" {
		tab = "Progress"
	}
	return &Ledger{svc: svc, spreadsheetID: spreadsheetID, tab: tab, log: logger}, nil
}

var _ domain.LedgerStore = (*Ledger)(nil)

func (l *Ledger) readRange() string {
	return l.tab + "!A:H"
}

// classify maps Sheets API failures onto the ledger error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range") {
			return fmt.Errorf("%w: %v", domain.ErrSchemaMissing, err)
		}
		if gerr.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %v", domain.ErrSchemaMissing, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

// EnsureSchema creates the Progress tab with its header row if absent.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	doc, err := l.svc.Spreadsheets.Get(l.spreadsheetID).Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "spreadsheet_get", l.tab, start, err)
	if err != nil {
		return classify(err)
	}
	for _, sheet := range doc.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == l.tab {
			return nil
		}
	}

	start = time.Now()
	_, err = l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: l.tab},
			},
		}},
	}).Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "add_sheet", l.tab, start, err)
	if err != nil {
		return classify(err)
	}

	start = time.Now()
	_, err = l.svc.Spreadsheets.Values.Update(l.spreadsheetID, l.readRange(), &sheetsapi.ValueRange{
		Values: [][]interface{}{headerRow},
	}).ValueInputOption("RAW").Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "values_update", l.tab, start, err)
	if err != nil {
		return classify(err)
	}
	l.log.Info().Str("tab", l.tab).Msg("sheets: provisioned progress tab")
	return nil
}

// AppendRow appends one row in the current layout.
func (l *Ledger) AppendRow(ctx context.Context, row domain.LedgerRow) error {
	start := time.Now()
	_, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, l.readRange(), &sheetsapi.ValueRange{
		Values: [][]interface{}{rowValues(row)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "values_append", l.tab, start, err)
	return classify(err)
}

// FindRow scans the tab for the key. Sheets has no query primitive, so this
// reads the full range, same as the other read paths.
func (l *Ledger) FindRow(ctx context.Context, key domain.LedgerKey) (*domain.LedgerRow, error) {
	rows, _, err := l.loadIndexed(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Key() == key {
			row := rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

// DeleteRow removes the physical row holding the key, if any.
func (l *Ledger) DeleteRow(ctx context.Context, key domain.LedgerKey) (bool, error) {
	rows, lines, err := l.loadIndexed(ctx)
	if err != nil {
		return false, err
	}
	line := -1
	for i := range rows {
		if rows[i].Key() == key {
			line = lines[i]
			break
		}
	}
	if line < 0 {
		return false, nil
	}

	sheetID, err := l.sheetID(ctx)
	if err != nil {
		return false, err
	}
	start := time.Now()
	_, err = l.svc.Spreadsheets.BatchUpdate(l.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(line),
					EndIndex:   int64(line + 1),
				},
			},
		}},
	}).Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "delete_row", l.tab, start, err)
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

// LoadAll returns every row, both layouts normalized.
func (l *Ledger) LoadAll(ctx context.Context) ([]domain.LedgerRow, error) {
	rows, _, err := l.loadIndexed(ctx)
	return rows, err
}

// loadIndexed reads the full range and returns normalized rows plus each
// row's zero-based physical line, which DeleteRow needs.
func (l *Ledger) loadIndexed(ctx context.Context) ([]domain.LedgerRow, []int, error) {
	start := time.Now()
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, l.readRange()).Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "values_get", l.tab, start, err)
	if err != nil {
		return nil, nil, classify(err)
	}
	var (
		rows  []domain.LedgerRow
		lines []int
	)
	for i, raw := range resp.Values {
		row, ok := parseRow(raw)
		if !ok {
			if i > 0 {
				l.log.Warn().Int("line", i+1).Msg("sheets: unparseable progress row skipped")
			}
			continue
		}
		rows = append(rows, row)
		lines = append(lines, i)
	}
	return rows, lines, nil
}

func (l *Ledger) sheetID(ctx context.Context) (int64, error) {
	start := time.Now()
	doc, err := l.svc.Spreadsheets.Get(l.spreadsheetID).Context(ctx).Do()
	metrics.ObserveNetworkRequest("sheets", "spreadsheet_get", l.tab, start, err)
	if err != nil {
		return 0, classify(err)
	}
	for _, sheet := range doc.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == l.tab {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: tab %q not found", domain.ErrSchemaMissing, l.tab)
}
