package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	messageDateTimeLayout = "2/1/06 3:04PM"
	shortDateLayout       = "2/1/06"
	longDateLayout        = "2/1/2006"
)

// fields holds the named captures of one match.
type fields map[string]string

func capture(re *regexp.Regexp, text string) fields {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	f := make(fields, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			f[name] = strings.TrimSpace(m[i])
		}
	}
	return f
}

// money parses a required amount field.
func (f fields) money(name string) (decimal.Decimal, error) {
	return parseAmount(f[name])
}

// optionalMoney parses an amount field that may be absent. Absent yields zero.
func (f fields) optionalMoney(name string) (decimal.Decimal, error) {
	if f[name] == "" {
		return decimal.Zero, nil
	}
	return parseAmount(f[name])
}

// optionalMoneyPtr is optionalMoney but keeps "absent" distinct from zero.
func (f fields) optionalMoneyPtr(name string) (*decimal.Decimal, error) {
	if f[name] == "" {
		return nil, nil
	}
	d, err := parseAmount(f[name])
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseAmount strips thousands separators and parses a currency amount with
// at most two fraction digits.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if d.IsNegative() || d.Exponent() < -2 {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return d, nil
}

// parseDateTime parses a day/month/2-digit-year date and a 12-hour clock
// such as "5/3/25" and "10:00 AM".
func parseDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	c := strings.ToUpper(strings.ReplaceAll(clock, " ", ""))
	t, err := time.ParseInLocation(messageDateTimeLayout, date+" "+c, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrMalformedDate, date, clock)
	}
	return t, nil
}

// parseDueDate accepts 2- or 4-digit years.
func parseDueDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{shortDateLayout, longDateLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
}

// counterpartyID prefers a phone or account number and falls back to the
// upper-cased name. Kenyan mobile numbers are normalized to 2547XXXXXXXX.
func counterpartyID(party, name string) string {
	party = strings.TrimPrefix(party, "+")
	if len(party) == 10 && strings.HasPrefix(party, "0") {
		party = "254" + party[1:]
	}
	if party != "" {
		return party
	}
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
