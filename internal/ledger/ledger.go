// Package ledger reconstructs daily opening/closing balances from a flat
// transaction list and the present-tense balance.
//
// The backend only reports the current balance, never balance-as-of-date, so
// the ledger, bank-book and cash-book screens all re-derive history on the
// client: group entries by calendar day, then walk backward from the newest
// day, whose closing balance is the known current balance.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Convention fixes which direction debits move the balance.
//
// Bank and customer ledgers treat debit minus credit as the day's movement;
// the cash book treats credit minus debit as the movement. The upstream
// system carries both, deliberately kept distinct here rather than unified.
type Convention int

const (
	// DebitMinusCredit is the bank/customer ledger convention.
	DebitMinusCredit Convention = iota
	// CreditMinusDebit is the cash-book convention.
	CreditMinusDebit
)

// Entry is one dated ledger line. Entries are consumed transiently to compute
// daily balances and are never cached locally.
type Entry struct {
	Date        string          `json:"entry_date"`
	Particulars string          `json:"particulars,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	VoucherNo   string          `json:"voucher_no,omitempty"`
}

// DayBalance is the derived position of one calendar day that had movement.
type DayBalance struct {
	Date    string          `json:"date"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Opening decimal.Decimal `json:"opening"`
	Closing decimal.Decimal `json:"closing"`
}

// Result holds the derived balances for every date that had entries, plus the
// reference balance used for dates that had none.
type Result struct {
	// Days are ordered ascending by date.
	Days []DayBalance

	reference decimal.Decimal
	byDate    map[string]DayBalance
}

// ComputeDailyBalances derives per-day opening/closing balances.
//
// currentBalance is the known closing balance of the most recent date that
// has entries. Walking backward, each day's opening is its closing minus the
// day's movement under the given convention, and that opening becomes the
// closing of the previous date in the sorted set (not the calendar-previous
// day; days without entries simply don't appear).
//
// The whole result must be re-derived whenever the entry list or the
// reference balance changes.
func ComputeDailyBalances(entries []Entry, currentBalance decimal.Decimal, conv Convention) *Result {
	type daySum struct {
		debit  decimal.Decimal
		credit decimal.Decimal
	}
	sums := make(map[string]daySum)
	for _, e := range entries {
		day := normalizeDay(e.Date)
		if day == "" {
			continue
		}
		s := sums[day]
		s.debit = s.debit.Add(e.Debit)
		s.credit = s.credit.Add(e.Credit)
		sums[day] = s
	}

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	result := &Result{
		Days:      make([]DayBalance, len(dates)),
		reference: currentBalance,
		byDate:    make(map[string]DayBalance, len(dates)),
	}

	closing := currentBalance
	for i := len(dates) - 1; i >= 0; i-- {
		day := dates[i]
		s := sums[day]
		opening := closing.Sub(movement(s.debit, s.credit, conv))
		db := DayBalance{
			Date:    day,
			Debit:   s.debit,
			Credit:  s.credit,
			Opening: opening,
			Closing: closing,
		}
		result.Days[i] = db
		result.byDate[day] = db
		// The opening of this day is the closing of the preceding
		// date that has entries.
		closing = opening
	}

	return result
}

// Balance returns the derived position of a date. A date with no entries
// falls back to opening = closing = the reference balance, since no movement
// occurred on it.
func (r *Result) Balance(date string) DayBalance {
	day := normalizeDay(date)
	if db, ok := r.byDate[day]; ok {
		return db
	}
	return DayBalance{
		Date:    day,
		Debit:   decimal.Zero,
		Credit:  decimal.Zero,
		Opening: r.reference,
		Closing: r.reference,
	}
}

func movement(debit, credit decimal.Decimal, conv Convention) decimal.Decimal {
	if conv == CreditMinusDebit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// dayFormats are the date layouts the backend has been seen to emit.
var dayFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
}

// normalizeDay reduces a raw entry date to its calendar day (YYYY-MM-DD).
// Unparseable dates yield "" and the entry is skipped.
func normalizeDay(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dayFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	// Already looks like an ISO day with a time suffix.
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}
