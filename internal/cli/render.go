package cli

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

var transactionHeader = []string{"ID", "Date", "Time", "Amount", "Vendor", "Description", "Category"}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	return table
}

// renderTransactions prints txs with a footer holding their balance.
func renderTransactions(w io.Writer, txs []core.Transaction) {
	table := newTable(w, transactionHeader)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})
	for _, t := range txs {
		table.Append(transactionRow(t))
	}
	table.SetFooter([]string{"", "", "Balance", ledger.Summarize(txs).Balance.Format(), "", "", strconv.Itoa(len(txs)) + " rows"})
	table.Render()
}

func transactionRow(t core.Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Date.String(),
		t.Time.String(),
		t.Amount.Format(),
		t.Vendor,
		t.Description,
		t.Category,
	}
}

func renderSummary(w io.Writer, s ledger.Summary) {
	table := newTable(w, []string{"", "Count", "Amount"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	table.Append([]string{"Deposits", strconv.Itoa(s.DepositCount), s.Deposits.Format()})
	table.Append([]string{"Payments", strconv.Itoa(s.PaymentCount), s.Payments.Format()})
	table.SetFooter([]string{"Balance", strconv.Itoa(s.Count), s.Balance.Format()})
	table.Render()
}

func renderCategories(w io.Writer, cats []ledger.CategoryAmount) {
	table := newTable(w, []string{"Category", "Count", "Amount"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, c := range cats {
		name := c.Name
		if name == "" {
			name = "(uncategorized)"
		}
		table.Append([]string{name, strconv.Itoa(c.Count), c.Amount.Format()})
	}
	table.Render()
}
