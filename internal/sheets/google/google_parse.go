package google

import (
	"fmt"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// Header is the first row of an exported ledger sheet.
var Header = []string{"ID", "Date", "Time", "Amount", "Description", "Vendor", "Category"}

const footerLabel = "Balance"

// toRows renders the header, one row per transaction and the balance footer.
// Amounts are written as exact decimal text.
func toRows(txs []core.Transaction, balance core.Money) [][]any {
	rows := make([][]any, 0, len(txs)+2)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, t := range txs {
		rows = append(rows, []any{
			strconv.FormatInt(t.ID, 10),
			t.Date.String(),
			t.Time.String(),
			t.Amount.String(),
			t.Description,
			t.Vendor,
			t.Category,
		})
	}
	return append(rows, []any{footerLabel, "", "", balance.String(), "", "", ""})
}

// parseRows converts a values matrix (as returned by the Sheets API) back
// into transactions. The header row is required; reading stops at the
// balance footer.
func parseRows(values [][]any) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(Header))
	var missing []string
	for _, h := range Header {
		i := indexOf(headers, h)
		if i < 0 {
			missing = append(missing, h)
		}
		cols[h] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unexpected ledger sheet header: missing %s; got headers=%v",
			core.ErrInvalidFormat, strings.Join(missing, ","), headers)
	}

	var out []core.Transaction
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		get := func(h string) string { return strings.TrimSpace(safeGet(row, cols[h])) }
		if strings.EqualFold(get("ID"), footerLabel) {
			break
		}
		if get("ID") == "" && get("Amount") == "" {
			continue
		}
		id, err := strconv.ParseInt(get("ID"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: row %d: bad id %q", core.ErrInvalidFormat, i+1, get("ID"))
		}
		t, err := core.NewTransaction(get("Amount"), get("Date"), get("Time"), safeGet(row, cols["Description"]), safeGet(row, cols["Vendor"]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", core.ErrInvalidFormat, i+1, err)
		}
		out = append(out, t.WithID(id).WithCategory(get("Category")))
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
