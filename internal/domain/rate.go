package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of an as-of date.
const DateLayout = "2006-01-02"

// RateObservation is one published rate: home-currency units per 1 unit of CurrencyCode.
type RateObservation struct {
	TenantID     string
	CurrencyCode string
	AsOfDate     time.Time
	Rate         decimal.Decimal
	ObservedAt   time.Time
}

type UpsertResult string

const (
	UpsertNew       UpsertResult = "new"
	UpsertChanged   UpsertResult = "changed"
	UpsertUnchanged UpsertResult = "unchanged"
)

// RemoteRateRecord is the exchange rate entity as the remote ledger stores it.
type RemoteRateRecord struct {
	ID             string
	SourceCurrency string
	TargetCurrency string
	Rate           decimal.Decimal
	AsOfDate       time.Time
	VersionToken   string
}

type WriteKind string

const (
	WriteCreated WriteKind = "created"
	WriteUpdated WriteKind = "updated"
)

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysBetween counts whole calendar days from a to b; negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
