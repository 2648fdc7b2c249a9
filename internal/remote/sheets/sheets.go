// Package sheets implements the remote sync port against a Google
// Spreadsheet. Each collection is mirrored to its own worksheet; a push
// clears the sheet and rewrites it from the committed dataset.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	"saldo/internal/remote"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetPrefix   string
}

var _ remote.Pusher = (*Client)(nil)

// NewFromEnv creates a Sheets pusher using environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS. Optional: GOOGLE_SHEET_PREFIX
// (default "Saldo") prefixes the per-collection worksheet names.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	prefix := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_PREFIX"))
	if prefix == "" {
		prefix = "Saldo"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetPrefix:   prefix,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// PushDataset mirrors every collection to its worksheet.
func (c *Client) PushDataset(ctx context.Context, data *core.Dataset) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	if err := c.writeSheet(ctx, "Expenses", entryRows(data.Expenses)); err != nil {
		return err
	}
	if err := c.writeSheet(ctx, "Incomes", entryRows(data.Incomes)); err != nil {
		return err
	}
	if err := c.writeSheet(ctx, "ExpenseRules", ruleRows(data.ExpenseRules)); err != nil {
		return err
	}
	if err := c.writeSheet(ctx, "IncomeRules", ruleRows(data.IncomeRules)); err != nil {
		return err
	}
	if err := c.writeSheet(ctx, "Overrides", overrideRows(data.IncomeOverrides)); err != nil {
		return err
	}
	if err := c.writeSheet(ctx, "Settings", settingsRows(data)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Pushed dataset to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"expenses", len(data.Expenses),
		"incomes", len(data.Incomes))
	return nil
}

// writeSheet clears a worksheet and rewrites it with the given rows.
func (c *Client) writeSheet(ctx context.Context, name string, rows [][]any) error {
	sheet := c.sheetPrefix + " " + name
	clearRange := fmt.Sprintf("%s!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}
	writeRange := fmt.Sprintf("%s!A1", sheet)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet %s: %w", sheet, err)
	}
	return nil
}

func entryRows(entries []core.Entry) [][]any {
	rows := [][]any{{"Date", "Description", "Amount"}}
	for _, e := range entries {
		rows = append(rows, []any{e.Date.String(), e.Description, e.Amount})
	}
	return rows
}

func ruleRows(rules []core.Rule) [][]any {
	rows := [][]any{{"ID", "Description", "Amount", "Frequency", "Start", "End", "DayOfMonth", "DayOfWeek"}}
	for _, r := range rules {
		end := ""
		if r.EndDate != nil {
			end = r.EndDate.String()
		}
		dom := ""
		if r.DayOfMonth != nil {
			dom = fmt.Sprintf("%d", *r.DayOfMonth)
		}
		dow := ""
		if r.DayOfWeek != nil {
			dow = r.DayOfWeek.String()
		}
		rows = append(rows, []any{r.ID, r.Description, r.Amount, string(r.Frequency), r.StartDate.String(), end, dom, dow})
	}
	return rows
}

func overrideRows(overrides []core.Override) [][]any {
	rows := [][]any{{"RuleID", "Month", "Amount"}}
	for _, o := range overrides {
		rows = append(rows, []any{o.RecurringID, o.Month.String(), o.Amount})
	}
	return rows
}

func settingsRows(data *core.Dataset) [][]any {
	rows := [][]any{{"Key", "Value"}, {"anchor", data.Anchor}}
	for k, v := range data.Preferences {
		rows = append(rows, []any{"pref:" + k, v})
	}
	return rows
}
