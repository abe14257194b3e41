package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/peter-kozarec/foresight/pkg/common"
)

// Extraction is a best-effort heuristic over free text, not a grammar.
// Malformed numeric fragments degrade to absent fields and text without
// recommendations yields an empty slice, never an error.

var (
	overweightRe  = regexp.MustCompile(`(?i:overweight)[:\s]+.*?([A-Z]{1,5}(?:\.[A-Z]+)?)(?:\s|,|\.|$)`)
	underweightRe = regexp.MustCompile(`(?i:underweight)[:\s]+.*?([A-Z]{1,5}(?:\.[A-Z]+)?)(?:\s|,|\.|$)`)
	confidenceRe  = regexp.MustCompile(`(?i)confidence[:\s]+([0-9.]+)`)
	returnRe      = regexp.MustCompile(`(?i)(?:expected|return)[:\s]+([-0-9.]+)%?`)

	// Closed vocabulary of sector and index tickers scanned directly, for
	// analyses that mention a fund without an explicit label block.
	sectorRe = regexp.MustCompile(`(?i)\b(XLK|XLE|XLF|XLI|XLV|XLP|XLY|XLB|XLU|SPY|QQQ|DIA|IWM)\b`)
)

const (
	maxSymbolLen = 6
	labelWindow  = 100
	sectorWindow = 200
)

// Recommendations parses analysis text into the set of trade recommendations
// it contains. Explicit OVERWEIGHT/UNDERWEIGHT label blocks take priority,
// then the sector-ticker vocabulary; the union is deduplicated by
// (symbol, direction) keeping the first occurrence.
func Recommendations(text string) []common.Recommendation {
	var recs []common.Recommendation

	recs = append(recs, labelled(text, overweightRe, common.DirectionOverweight)...)
	recs = append(recs, labelled(text, underweightRe, common.DirectionUnderweight)...)
	recs = append(recs, sectorMentions(text, recs)...)

	seen := make(map[string]struct{}, len(recs))
	unique := recs[:0]
	for _, rec := range recs {
		key := rec.Symbol + "|" + string(rec.Direction)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}

// labelled captures the first ticker-shaped token after every label match and
// scans a window from the label forward for confidence / expected-return
// fragments. The window never reaches back before the label, so numbers
// belonging to an earlier recommendation are not picked up.
func labelled(text string, re *regexp.Regexp, dir common.Direction) []common.Recommendation {
	var recs []common.Recommendation
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		symbol := strings.TrimSpace(text[m[2]:m[3]])
		if symbol == "" || len(symbol) > maxSymbolLen {
			continue
		}

		end := min(len(text), m[1]+labelWindow)
		window := text[m[0]:end]

		recs = append(recs, common.Recommendation{
			Symbol:         symbol,
			Direction:      dir,
			Confidence:     parseConfidence(window),
			ExpectedReturn: parseExpectedReturn(window),
		})
	}
	return recs
}

// sectorMentions classifies vocabulary tickers not already captured by a
// label block, using the position of "overweight"/"underweight" inside a
// lower-cased window around the mention.
func sectorMentions(text string, existing []common.Recommendation) []common.Recommendation {
	var recs []common.Recommendation
	for _, m := range sectorRe.FindAllStringSubmatchIndex(text, -1) {
		symbol := strings.ToUpper(text[m[2]:m[3]])
		if hasSymbol(existing, symbol) || hasSymbol(recs, symbol) {
			continue
		}

		start := max(0, m[0]-sectorWindow)
		end := min(len(text), m[1]+sectorWindow)
		window := strings.ToLower(text[start:end])

		mention := strings.Index(window, strings.ToLower(symbol))
		before := window
		if mention >= 0 {
			before = window[:mention]
		}

		switch {
		case strings.Contains(window, "overweight") && !strings.Contains(before, "underweight"):
			recs = append(recs, common.Recommendation{Symbol: symbol, Direction: common.DirectionOverweight})
		case strings.Contains(window, "underweight"):
			recs = append(recs, common.Recommendation{Symbol: symbol, Direction: common.DirectionUnderweight})
		}
	}
	return recs
}

func hasSymbol(recs []common.Recommendation, symbol string) bool {
	for _, rec := range recs {
		if rec.Symbol == symbol {
			return true
		}
	}
	return false
}

// parseConfidence reads a "confidence: <n>" fragment. Values above 1 are
// treated as percentages and divided by 100.
func parseConfidence(window string) *float64 {
	m := confidenceRe.FindStringSubmatch(window)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimRight(m[1], ".,;"), 64)
	if err != nil {
		return nil
	}
	if v > 1 {
		v = v / 100
	}
	return &v
}

// parseExpectedReturn reads an "expected: <n>%" or "return: <n>%" fragment,
// in percentage points.
func parseExpectedReturn(window string) *float64 {
	m := returnRe.FindStringSubmatch(window)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimRight(m[1], ".,;%"), 64)
	if err != nil {
		return nil
	}
	return &v
}
