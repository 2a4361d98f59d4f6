package rate

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// rates are stored as numeric(18,6)
const maxRateDecimalPlaces int32 = 6

var (
	ErrCodeRequired    = errors.New("currency code is required")
	ErrCodeMalformed   = errors.New("currency code must be three ISO-4217 letters")
	ErrCodeUnsupported = errors.New("currency not supported")
	ErrRateNotPositive = errors.New("rate must be positive")
	ErrTooManyDecimals = errors.New("rate has more than 6 decimal places")
	ErrDuplicateCode   = errors.New("currency code listed twice")
	ErrNoRates         = errors.New("at least one rate is required")
)

// CurrencyValidator checks codes and rates before they reach the store.
// An empty supported set accepts every well-formed code.
type CurrencyValidator struct {
	supportedCodesSet map[string]struct{} // read only copy
	supportedCodesLst []string            // read only copy
}

// NormalizeCode upper-cases code and checks its shape and support.
func (v *CurrencyValidator) NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", ErrCodeRequired
	}
	if len(code) != 3 || strings.IndexFunc(code, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		return "", ErrCodeMalformed
	}
	if len(v.supportedCodesSet) > 0 {
		if _, ok := v.supportedCodesSet[code]; !ok {
			return "", ErrCodeUnsupported
		}
	}
	return code, nil
}

// NormalizeCodes returns the codes normalized, de-duplicated and sorted.
func (v *CurrencyValidator) NormalizeCodes(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		n, err := v.NormalizeCode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (v *CurrencyValidator) ValidateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return ErrRateNotPositive
	}
	if !rate.Equal(rate.Truncate(maxRateDecimalPlaces)) {
		return ErrTooManyDecimals
	}
	return nil
}

func (v *CurrencyValidator) SupportedCodes() []string {
	return slices.Clone(v.supportedCodesLst)
}

func NewValidator(supportedCurrencies []string) *CurrencyValidator {
	codesSet := make(map[string]struct{}, len(supportedCurrencies))
	for _, c := range supportedCurrencies {
		codesSet[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	codesLst := slices.Sorted(maps.Keys(codesSet))

	return &CurrencyValidator{
		supportedCodesSet: codesSet,
		supportedCodesLst: codesLst,
	}
}
