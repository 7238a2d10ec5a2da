package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

// ImportColumns is the required CSV header, in order.
var ImportColumns = []string{"provider_id", "model", "tokens_used", "cost_usd", "entry_date"}

// maxCostUSD is the exclusive upper bound of the NUMERIC(14,6) cost column.
const maxCostUSD = 1e8

// ImportValue holds a raw cell. In JSON it accepts strings, numbers and null.
type ImportValue string

func (v *ImportValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ImportValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*v = ImportValue(n.String())
	}
	return nil
}

// ImportRow is one unvalidated spending entry from an upload.
type ImportRow struct {
	ProviderID ImportValue `json:"provider_id"`
	Model      ImportValue `json:"model"`
	TokensUsed ImportValue `json:"tokens_used"`
	CostUSD    ImportValue `json:"cost_usd"`
	EntryDate  ImportValue `json:"entry_date"`
}

// ParseImportCSV reads rows from a CSV document whose header matches ImportColumns.
func ParseImportCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.ValidationError("No entries provided")
	}
	if err != nil {
		return nil, apperrors.ValidationError("Invalid CSV").WithCause(err)
	}

	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}
	if strings.Join(header, ",") != strings.Join(ImportColumns, ",") {
		return nil, apperrors.ValidationError(fmt.Sprintf("CSV header must be %s", strings.Join(ImportColumns, ",")))
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.ValidationError("Invalid CSV").WithCause(err)
		}
		rows = append(rows, ImportRow{
			ProviderID: ImportValue(record[0]),
			Model:      ImportValue(record[1]),
			TokensUsed: ImportValue(record[2]),
			CostUSD:    ImportValue(record[3]),
			EntryDate:  ImportValue(record[4]),
		})
	}
	return rows, nil
}

// parseImportRows converts rows to insert params, reporting every invalid
// field at once. An empty entry_date means today; empty tokens_used means 0.
func parseImportRows(teamID string, rows []ImportRow, now time.Time) ([]model.CreateSpendingEntryParams, error) {
	var fieldErrs []apperrors.FieldError
	reject := func(i int, field, msg string) {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field:   fmt.Sprintf("entries[%d].%s", i, field),
			Message: msg,
		})
	}

	params := make([]model.CreateSpendingEntryParams, 0, len(rows))
	for i, row := range rows {
		p := model.CreateSpendingEntryParams{TeamID: teamID}

		p.ProviderID = strings.TrimSpace(string(row.ProviderID))
		if !util.IsValidUUID(p.ProviderID) {
			reject(i, "provider_id", "provider_id must be a valid UUID")
		}

		p.Model = strings.TrimSpace(string(row.Model))
		if p.Model == "" {
			reject(i, "model", "model is required")
		}

		if raw := strings.TrimSpace(string(row.TokensUsed)); raw != "" {
			tokens, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || tokens < 0 {
				reject(i, "tokens_used", "tokens_used must be a non-negative integer")
			}
			p.TokensUsed = tokens
		}

		cost, err := strconv.ParseFloat(strings.TrimSpace(string(row.CostUSD)), 64)
		if err != nil || math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 {
			reject(i, "cost_usd", "cost_usd must be a non-negative number")
		} else if cost >= maxCostUSD {
			reject(i, "cost_usd", "cost_usd must be less than 100000000")
		}
		p.CostUSD = cost

		p.EntryDate = model.NewDate(now).Time
		if raw := strings.TrimSpace(string(row.EntryDate)); raw != "" {
			date, err := model.ParseDate(raw)
			if err != nil {
				reject(i, "entry_date", "entry_date must be a date in YYYY-MM-DD format")
			}
			p.EntryDate = date.Time
		}

		params = append(params, p)
	}

	if len(fieldErrs) > 0 {
		return nil, apperrors.ValidationError("Validation error").WithFields(fieldErrs)
	}
	return params, nil
}
