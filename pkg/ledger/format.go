package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
)

// amountColumn is where posting amounts start, counted from the indent.
const amountColumn = 60

// Format renders an entry as Beancount text, terminated by a newline.
func Format(e Entry) string {
	switch e := e.(type) {
	case *Transaction:
		return FormatTransaction(e)
	case *Balance:
		return FormatBalance(e)
	default:
		return fmt.Sprintf("; unsupported entry %T\n", e)
	}
}

// FormatTransaction formats a transaction as a string.
func FormatTransaction(txn *Transaction) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(txn.Date.Format("2006-01-02"))
	flag := txn.Flag
	if flag == "" {
		flag = FlagOK
	}
	sb.WriteString(" " + flag)
	if txn.Payee != "" {
		sb.WriteString(" " + quote(txn.Payee))
	}
	sb.WriteString(" " + quote(txn.Narration))
	for _, tag := range txn.Tags {
		sb.WriteString(" #" + tag)
	}
	sb.WriteString("\n")
	writeMetadata(&sb, txn.Metadata, "  ")

	// Postings
	for _, p := range txn.Postings {
		sb.WriteString("  ")
		sb.WriteString(p.Account)
		if p.Units == nil {
			sb.WriteString("\n")
			continue
		}

		// Right-align amount (typical Beancount style)
		sb.WriteString(strings.Repeat(" ", max(2, amountColumn-len(p.Account))))
		sb.WriteString(formatAmount(*p.Units))

		if p.Cost != nil {
			sb.WriteString(" {" + formatNumber(p.Cost.Number) + " " + p.Cost.Currency)
			if !p.Cost.Date.IsZero() {
				sb.WriteString(", " + p.Cost.Date.Format("2006-01-02"))
			}
			sb.WriteString("}")
		}
		if p.Price != nil {
			sb.WriteString(" @ " + formatAmount(*p.Price))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatBalance formats a balance assertion as a string.
func FormatBalance(b *Balance) string {
	var sb strings.Builder
	sb.WriteString(b.Date.Format("2006-01-02"))
	sb.WriteString(" balance ")
	sb.WriteString(b.Account)
	sb.WriteString(strings.Repeat(" ", max(2, amountColumn-len(b.Account)-len(" balance"))))
	sb.WriteString(formatAmount(b.Amount))
	sb.WriteString("\n")
	writeMetadata(&sb, b.Metadata, "  ")
	return sb.String()
}

func writeMetadata(sb *strings.Builder, meta Metadata, indent string) {
	for _, key := range meta.Keys() {
		sb.WriteString(fmt.Sprintf("%s%s: %s\n", indent, key, quote(meta[key])))
	}
}

func formatAmount(a amount.Amount) string {
	return formatNumber(a.Number) + " " + a.Currency
}

// formatNumber keeps the precision the number was written with.
func formatNumber(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
