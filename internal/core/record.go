package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	KindTrade      Kind = "trade"
	KindWithdrawal Kind = "withdrawal"
	KindDeposit    Kind = "deposit"
)

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

type (
	// Kind discriminates the three ledger event types. Exactly one kind
	// applies to a record; the meaningful fields depend on it.
	Kind string

	// Side is the direction of a trade.
	Side string

	// Instrument is the asset category of a trade.
	Instrument string

	// Record is one ledger event: a closed trade, a withdrawal, or a
	// deposit. For withdrawals and deposits Price holds the unsigned
	// amount moved; direction is implied by Kind, never by sign.
	Record struct {
		ID          string
		Kind        Kind
		Date        time.Time
		Symbol      string
		Side        Side
		Qty         float64
		Price       float64
		ProfitLoss  float64
		Instrument  Instrument
		Description string
		// Screenshot is an opaque reference into an external upload
		// store; this service never touches the file itself.
		Screenshot string
		Deleted    bool
		DeletedAt  time.Time
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}
)

const (
	InstrumentStocks  Instrument = "Stocks"
	InstrumentOptions Instrument = "Options"
	InstrumentForex   Instrument = "Forex"
	InstrumentCrypto  Instrument = "Crypto"
	InstrumentFutures Instrument = "Futures"
)

var (
	ErrInvalidKind       = errors.New("invalid record kind")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptySymbol       = errors.New("empty symbol")
	ErrInvalidSide       = errors.New("invalid side")
	ErrInvalidQty        = errors.New("invalid quantity")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidInstrument = errors.New("invalid instrument")
)

// Valid reports whether i names a known instrument category.
func (i Instrument) Valid() bool {
	switch i {
	case InstrumentStocks, InstrumentOptions, InstrumentForex, InstrumentCrypto, InstrumentFutures:
		return true
	}
	return false
}

// NewTrade builds a trade record. Fields meaningless for trades stay zero.
func NewTrade(date time.Time, symbol string, side Side, qty, price, pl float64, instrument Instrument) Record {
	return Record{
		Kind:       KindTrade,
		Date:       date,
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Side:       side,
		Qty:        qty,
		Price:      price,
		ProfitLoss: pl,
		Instrument: instrument,
	}
}

// NewWithdrawal builds a withdrawal of the given unsigned amount.
func NewWithdrawal(date time.Time, amount float64, description string) Record {
	return Record{
		Kind:        KindWithdrawal,
		Date:        date,
		Price:       amount,
		Description: strings.TrimSpace(description),
	}
}

// NewDeposit builds a deposit of the given unsigned amount.
func NewDeposit(date time.Time, amount float64, description string) Record {
	return Record{
		Kind:        KindDeposit,
		Date:        date,
		Price:       amount,
		Description: strings.TrimSpace(description),
	}
}

// Validate checks the record at the ingestion boundary. The statistics
// aggregator never validates; anything that reaches it has passed here.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}

	switch r.Kind {
	case KindTrade:
		if strings.TrimSpace(r.Symbol) == "" {
			return ErrEmptySymbol
		}
		if r.Side != SideBuy && r.Side != SideSell {
			return ErrInvalidSide
		}
		if !isFinite(r.Qty) || r.Qty <= 0 {
			return ErrInvalidQty
		}
		if !isFinite(r.Price) || r.Price < 0 {
			return ErrInvalidAmount
		}
		if !isFinite(r.ProfitLoss) {
			return ErrInvalidAmount
		}
		if !r.Instrument.Valid() {
			return ErrInvalidInstrument
		}
	case KindWithdrawal, KindDeposit:
		if !isFinite(r.Price) || r.Price <= 0 {
			return ErrInvalidAmount
		}
	default:
		return ErrInvalidKind
	}

	if len(r.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
