// Package sheets appends export tables to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"splitroom/internal/export"
	"splitroom/internal/logger"
	"splitroom/internal/resilience"
)

var (
	ErrInvalidURL         = errors.New("invalid Google Sheets URL")
	ErrMissingCredentials = errors.New("missing Google credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
)

// Credentials is a service account key, inline or as a file path.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case c.JSON != "":
		return []byte(c.JSON), nil
	case c.File != "":
		return os.ReadFile(c.File)
	default:
		return nil, ErrMissingCredentials
	}
}

var writeRetry = resilience.RetryConfig{MaxRetries: 3, InitialBackoff: time.Second}

// Service writes to one spreadsheet.
type Service struct {
	api           *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewService connects with a service account. The spreadsheet must be
// shared with the account's email.
func NewService(ctx context.Context, sheetURL string, creds Credentials) (*Service, error) {
	const op = "NewService"

	id, err := SpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	key, err := creds.load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	jwt, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: parse credentials: %w", op, err)
	}
	api, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: create sheets client: %w", op, err)
	}

	log := logger.WithComponent("sheets")
	log.Debug().Str("spreadsheet_id", id).Msg("sheets client ready")
	return &Service{api: api, spreadsheetID: id, log: log}, nil
}

var spreadsheetPath = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetID extracts the ID from a spreadsheet URL.
func SpreadsheetID(url string) (string, error) {
	m := spreadsheetPath.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	return m[1], nil
}

// AppendTable appends t's rows to the worksheet named t.Name, creating it
// with a formatted header row when missing.
func (s *Service) AppendTable(ctx context.Context, t export.Table) error {
	const op = "AppendTable"

	if len(t.Rows) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.ensureSheet(ctx, t, lastCol); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	values := make([][]any, len(t.Rows))
	copy(values, t.Rows)
	err = s.retry(ctx, func() error {
		_, err := s.api.Spreadsheets.Values.Append(s.spreadsheetID, fmt.Sprintf("%s!A:%s", t.Name, lastCol),
			&sheets.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: append to %s: %w", op, t.Name, err)
	}

	s.log.Info().Str("sheet", t.Name).Int("rows", len(values)).Msg("rows appended")
	return nil
}

// AppendTables appends every table in order and stops at the first error.
func (s *Service) AppendTables(ctx context.Context, tables []export.Table) error {
	for _, t := range tables {
		if err := s.AppendTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ensureSheet(ctx context.Context, t export.Table, lastCol string) error {
	const op = "ensureSheet"

	var doc *sheets.Spreadsheet
	err := s.retry(ctx, func() error {
		var err error
		doc, err = s.api.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: get spreadsheet: %w", op, err)
	}

	sheetID, found := int64(0), false
	for _, sh := range doc.Sheets {
		if sh.Properties.Title == t.Name {
			sheetID, found = sh.Properties.SheetId, true
			break
		}
	}
	if !found {
		s.log.Info().Str("sheet", t.Name).Msg("creating worksheet")
		resp, err := s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: t.Name}}}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: add sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", t.Name, lastCol)
	existing, err := s.api.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: read headers: %w", op, err)
	}
	if len(existing.Values) > 0 && len(existing.Values[0]) > 0 {
		return nil
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	_, err = s.api.Spreadsheets.Values.Update(s.spreadsheetID, headerRange,
		&sheets.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%s: write headers: %w", op, err)
	}

	if err := s.formatHeader(ctx, sheetID, int64(len(t.Headers))); err != nil {
		s.log.Warn().Err(err).Str("sheet", t.Name).Msg("header formatting failed")
	}
	return nil
}

// formatHeader bolds and shades the header row and resizes the columns.
func (s *Service) formatHeader(ctx context.Context, sheetID, columns int64) error {
	_, err := s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, EndColumnIndex: columns},
					Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					}},
					Fields: "userEnteredFormat(textFormat,backgroundColor)",
				},
			},
			{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{SheetId: sheetID, Dimension: "COLUMNS", EndIndex: columns},
				},
			},
		},
	}).Context(ctx).Do()
	return err
}

func (s *Service) retry(ctx context.Context, fn func() error) error {
	return resilience.Retry(ctx, writeRetry, isTransient, fn)
}

// isTransient reports rate limits and server errors from the Sheets API.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}
