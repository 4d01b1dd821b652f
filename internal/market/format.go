package market

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ArrowUp   = "▲"
	ArrowDown = "▼"

	ColorUp   = "#34A853"
	ColorDown = "#EA4335"
)

var enUS = message.NewPrinter(language.AmericanEnglish)

// FormatBadgePrice renders a price for the compact badge: an integer when the
// instrument uses integer display, fixed decimals otherwise.
func FormatBadgePrice(inst Instrument, price float64) string {
	if inst.BadgeDecimals <= 0 {
		return strconv.FormatFloat(math.Round(price), 'f', 0, 64)
	}
	return strconv.FormatFloat(price, 'f', inst.BadgeDecimals, 64)
}

// FormatListPrice renders a price for the viewer card with en-US digit
// grouping, e.g. 5,000 or 72.35.
func FormatListPrice(inst Instrument, price float64) string {
	d := inst.ListDecimals
	if d < 0 {
		d = 0
	}
	return enUS.Sprintf("%."+strconv.Itoa(d)+"f", price)
}

func Arrow(up bool) string {
	if up {
		return ArrowUp
	}
	return ArrowDown
}

func Color(up bool) string {
	if up {
		return ColorUp
	}
	return ColorDown
}

// SignedPct renders the percent change with an explicit plus sign for
// gains: "+0.20%", "-1.25%".
func SignedPct(q Quote) string {
	if q.Up {
		return "+" + q.ChangePct + "%"
	}
	return q.ChangePct + "%"
}

// Tooltip is the hover text of the badge.
func Tooltip(inst Instrument, q Quote) string {
	return inst.Name + ": " + strconv.FormatFloat(q.Price, 'f', -1, 64) + " " + Arrow(q.Up) + " " + SignedPct(q)
}
