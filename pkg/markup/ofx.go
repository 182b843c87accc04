package markup

import (
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// ofxStatement is the part shared by bank and credit card statement responses.
type ofxStatement struct {
	currency     string
	transactions []ofxgo.Transaction
	balance      ofxgo.Amount
	balanceDate  time.Time
}

func (p *Parser) ofxRecords(r io.Reader, file string) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		resp, err := ofxgo.ParseResponse(r)
		if err != nil {
			yield(record.Record{}, &record.MalformedRowError{
				Location: record.Location{File: file},
				Err:      fmt.Errorf("parse ofx document: %w", err),
			})
			return
		}

		var statements []ofxStatement
		for _, msg := range resp.Bank {
			stmt, ok := msg.(*ofxgo.StatementResponse)
			if !ok {
				p.logger.Debug("skipping bank message", "file", file, "type", fmt.Sprintf("%T", msg))
				continue
			}
			s := ofxStatement{currency: stmt.CurDef.String(), balance: stmt.BalAmt, balanceDate: stmt.DtAsOf.Time}
			if stmt.BankTranList != nil {
				s.transactions = stmt.BankTranList.Transactions
			}
			statements = append(statements, s)
		}
		for _, msg := range resp.CreditCard {
			stmt, ok := msg.(*ofxgo.CCStatementResponse)
			if !ok {
				p.logger.Debug("skipping credit card message", "file", file, "type", fmt.Sprintf("%T", msg))
				continue
			}
			s := ofxStatement{currency: stmt.CurDef.String(), balance: stmt.BalAmt, balanceDate: stmt.DtAsOf.Time}
			if stmt.BankTranList != nil {
				s.transactions = stmt.BankTranList.Transactions
			}
			statements = append(statements, s)
		}

		cur := cursor{file: file, index: 1}
		for _, s := range statements {
			for _, txn := range s.transactions {
				var rec record.Record
				rec, cur, err = p.ofxTransaction(cur, s.currency, txn)
				if !yield(rec, err) {
					return
				}
			}
			if s.balanceDate.IsZero() {
				continue
			}
			fields := map[string]string{
				record.FieldDate:        s.balanceDate.Format(record.DateLayout),
				record.FieldAmount:      ratString(s.balance),
				record.FieldCurrency:    s.currency,
				record.FieldBalanceType: "LEDGERBAL",
			}
			var rec record.Record
			rec, cur = cur.emit(record.KindBalance, balanceColumns, fields)
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (p *Parser) ofxTransaction(cur cursor, currency string, txn ofxgo.Transaction) (record.Record, cursor, error) {
	loc := record.Location{File: cur.file, Row: cur.index}
	if txn.Currency != nil {
		currency = txn.Currency.CurSym.String()
	}
	counterparty := txn.Name.String()
	if counterparty == "" && txn.Payee != nil {
		counterparty = txn.Payee.Name.String()
	}
	fields := map[string]string{
		record.FieldDate:         txn.DtPosted.Time.Format(record.DateLayout),
		record.FieldCurrency:     currency,
		record.FieldReference:    txn.FiTID.String(),
		record.FieldCode:         txn.TrnType.String(),
		record.FieldCounterparty: collapse(counterparty),
		record.FieldNarration:    collapse(txn.Memo.String()),
	}

	raw := ratString(txn.TrnAmt)
	d, err := amount.ParseNumber(raw, amount.Plain)
	if err != nil {
		rec, next := cur.emit(record.KindTransaction, transactionColumns, fields)
		return rec, next, &record.MalformedRowError{Location: loc, Field: record.FieldAmount, Value: raw, Err: err}
	}
	fields[record.FieldAmount] = amount.Canonical(d)

	refErr := p.resolveReference(loc, fields)
	rec, next := cur.emit(record.KindTransaction, transactionColumns, fields)
	return rec, next, refErr
}

func ratString(a ofxgo.Amount) string {
	return a.FloatString(8)
}
