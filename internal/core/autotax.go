package core

import (
	"regexp"
	"strconv"
	"time"
)

var taxGuessPattern = regexp.MustCompile(`(?i)tax|vat|gst|hst`)

// GuessTaxCategory picks the category most likely to represent tax:
// a name matching tax/vat/gst/hst scores highest, with shorter names
// winning ties. Returns false when no categories are available.
func GuessTaxCategory(categories []Category) (Category, bool) {
	if len(categories) == 0 {
		return Category{}, false
	}
	best := categories[0]
	bestScore := taxScore(best.Name)
	for _, c := range categories[1:] {
		if s := taxScore(c.Name); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, true
}

func taxScore(name string) float64 {
	score := 0.0
	if taxGuessPattern.MatchString(name) {
		score = 1
	}
	if len(name) > 0 {
		score += 1 / float64(len(name))
	}
	return score
}

// ApplyAutoTax splits a new single-line transaction into a net line and a
// "Tax" line using the user's configured tax rate. Amounts are fixed to two
// decimals regardless of the currency display setting, matching how the
// split behaves everywhere else the tax rate is applied.
func ApplyAutoTax(t *Transaction, categories []Category, cfg UserConfig) {
	if len(t.LineItems) != 1 || len(categories) <= 1 {
		return
	}
	if cfg.TaxRate == 0 {
		return
	}

	first := &t.LineItems[0]
	net := fixed2(first.Amount / (1 + cfg.TaxRate))

	taxCat, ok := GuessTaxCategory(categories)
	if !ok {
		return
	}

	taxLine := NewLineItem(*t)
	taxLine.Name = "Tax"
	taxLine.CategoryID = taxCat.ID
	taxLine.Amount = fixed2(first.Amount - net)
	taxLine.AmountInput = strconv.FormatFloat(taxLine.Amount, 'f', -1, 64)

	first.Amount = net
	first.AmountInput = strconv.FormatFloat(net, 'f', 2, 64)

	t.LineItems = append(t.LineItems, taxLine)
}

// NewLineItem returns a blank line item for the given transaction. The id
// is a local millisecond timestamp; the backend assigns the real one.
func NewLineItem(t Transaction) LineItem {
	return LineItem{
		ID:            time.Now().UnixMilli(),
		TransactionID: t.ID,
	}
}

func fixed2(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	out, _ := strconv.ParseFloat(s, 64)
	return out
}
