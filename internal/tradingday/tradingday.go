// Package tradingday expands date ranges into the days an exchange trades.
package tradingday

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmhub/calendar"

	"pricepool/internal/task"
)

// micByExchange maps price-service exchange codes to ISO 10383 MICs known
// to scmhub/calendar.
var micByExchange = map[string]string{
	"US":     "xnys",
	"NYSE":   "xnys",
	"NASDAQ": "xnas",
	"LSE":    "xlon",
	"XETRA":  "xfra",
	"F":      "xfra",
	"PA":     "xpar",
	"AS":     "xams",
	"BR":     "xbru",
	"MI":     "xmil",
	"MC":     "xmad",
	"ST":     "xsto",
	"CO":     "xcse",
	"HE":     "xhel",
	"VI":     "xwbo",
	"SW":     "xswx",
	"TO":     "xtse",
	"V":      "xtsx",
	"T":      "xtks",
	"HK":     "xhkg",
	"AU":     "xasx",
	"KO":     "xkrx",
	"TW":     "xtai",
	"SHG":    "xshg",
	"SHE":    "xshe",
}

// MIC returns the market identifier code for an exchange code, or "" when
// the exchange is unknown.
func MIC(exchange string) string {
	return micByExchange[strings.ToUpper(exchange)]
}

// Calendar decides whether a date is a trading day on one exchange.
type Calendar struct {
	cal *calendar.Calendar
	loc *time.Location
}

// For returns the calendar of an exchange. Unknown exchanges get a
// Monday-to-Friday calendar in UTC.
func For(exchange string) *Calendar {
	if mic := MIC(exchange); mic != "" {
		if cal := calendar.GetCalendar(mic); cal != nil {
			return &Calendar{cal: cal, loc: cal.Loc}
		}
	}
	return &Calendar{loc: time.UTC}
}

// IsTradingDay reports whether the exchange trades on the given date.
func (c *Calendar) IsTradingDay(year int, month time.Month, day int) bool {
	// Noon keeps the date stable across the calendar's timezone.
	t := time.Date(year, month, day, 12, 0, 0, 0, c.loc)
	if c.cal != nil {
		return c.cal.IsBusinessDay(t)
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Range returns every trading day of exchange between from and to
// inclusive, formatted as task dates.
func Range(exchange, from, to string) ([]string, error) {
	start, err := time.Parse(task.DateFormat, from)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", from, err)
	}
	end, err := time.Parse(task.DateFormat, to)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s is before start date %s", to, from)
	}

	cal := For(exchange)
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if cal.IsTradingDay(d.Year(), d.Month(), d.Day()) {
			dates = append(dates, d.Format(task.DateFormat))
		}
	}
	return dates, nil
}
