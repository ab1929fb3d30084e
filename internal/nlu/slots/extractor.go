// Package slots extracts typed parameters from an utterance after the
// intent is known. Extraction never hard-fails: anything unparseable is
// simply reported as missing so the orchestrator can default or ask back.
package slots

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aletabank-assistant/internal/catalog"
	"aletabank-assistant/internal/models"
	"aletabank-assistant/internal/nlu/patternmatch"
)

type Extractor struct {
	now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// NewExtractorAt pins the clock. Tests use this to make relative date
// phrases deterministic.
func NewExtractorAt(now func() time.Time) *Extractor {
	return &Extractor{now: now}
}

// Extract fills the intent's slots from the utterance. Required slots that
// cannot be filled come back in missing, sorted by name. Values recognized
// beyond the required set (a category filter, an account type) are attached
// under their canonical slot names.
func (e *Extractor) Extract(def *catalog.IntentDefinition, text string) (map[string]models.SlotValue, []string) {
	// Two views of the utterance: word-normalized for keyword lookups, and
	// plain lowercase for regexes that need digits, dots, and hyphens intact.
	words := patternmatch.Normalize(text)
	raw := strings.ToLower(text)
	values := make(map[string]models.SlotValue)

	recognized := map[models.SlotKind]models.SlotValue{}
	if t, ok := accountType(words); ok {
		recognized[models.SlotKindAccountType] = models.AccountTypeValue(t)
	}
	if dr, ok := e.dateRange(words, raw); ok {
		recognized[models.SlotKindDateRange] = models.DateRangeValue(dr.From, dr.To)
	}
	if amt, ok := amount(raw); ok {
		recognized[models.SlotKindAmount] = models.AmountValue(amt)
	}
	if cat, ok := category(words); ok {
		recognized[models.SlotKindCategory] = models.CategoryValue(cat)
	}

	var missing []string
	names := make([]string, 0, len(def.RequiredSlots))
	for name := range def.RequiredSlots {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := def.RequiredSlots[name]
		val, ok := recognized[kind]
		if !ok {
			missing = append(missing, name)
			continue
		}
		values[name] = val
		delete(recognized, kind)
	}

	// Leftover recognized values ride along under canonical names.
	for kind, val := range recognized {
		values[string(kind)] = val
	}

	if len(values) == 0 {
		values = nil
	}
	return values, missing
}

// accountType maps utterance phrases onto the closed account-type set. A
// bare "savings" means every savings-family account.
func accountType(normalized string) (models.AccountType, bool) {
	padded := " " + normalized + " "
	switch {
	case strings.Contains(padded, "high yield"):
		return models.AccountTypeHighYieldSavings, true
	case strings.Contains(padded, "travel savings") || strings.Contains(padded, "travel account"):
		return models.AccountTypeTravelSavings, true
	case strings.Contains(padded, "regular savings"):
		return models.AccountTypeRegularSavings, true
	case strings.Contains(padded, " savings "):
		return models.AccountTypeSavingsAll, true
	case strings.Contains(padded, " checking "):
		return models.AccountTypeChecking, true
	case strings.Contains(padded, " investment ") || strings.Contains(padded, " retirement "):
		return models.AccountTypeInvestment, true
	case strings.Contains(padded, " mortgage "):
		return models.AccountTypeMortgage, true
	case strings.Contains(padded, " credit "):
		return models.AccountTypeCredit, true
	}
	return "", false
}

var (
	lastNUnitsRe  = regexp.MustCompile(`\b(?:last|past) (\d{1,3}) (day|week|month)s?\b`)
	isoRangeRe    = regexp.MustCompile(`\bfrom (\d{4}-\d{2}-\d{2}) to (\d{4}-\d{2}-\d{2})\b`)
	sinceRe       = regexp.MustCompile(`\bsince (\d{4}-\d{2}-\d{2})\b`)
	singleDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	amountRe      = regexp.MustCompile(`\$?\b(\d+(?:\.\d{1,2})?)\b`)
	unitDurations = map[string]time.Duration{
		"day":   24 * time.Hour,
		"week":  7 * 24 * time.Hour,
		"month": 30 * 24 * time.Hour,
	}
)

func (e *Extractor) dateRange(words, raw string) (models.DateRange, bool) {
	now := e.now()

	if m := isoRangeRe.FindStringSubmatch(raw); m != nil {
		from, err1 := time.Parse("2006-01-02", m[1])
		to, err2 := time.Parse("2006-01-02", m[2])
		if err1 == nil && err2 == nil && !to.Before(from) {
			return models.DateRange{From: from, To: endOfDay(to)}, true
		}
	}
	if m := sinceRe.FindStringSubmatch(raw); m != nil {
		if from, err := time.Parse("2006-01-02", m[1]); err == nil {
			return models.DateRange{From: from, To: now}, true
		}
	}
	if m := lastNUnitsRe.FindStringSubmatch(words); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return models.DateRange{From: now.Add(-time.Duration(n) * unitDurations[m[2]]), To: now}, true
		}
	}

	padded := " " + words + " "
	switch {
	case strings.Contains(padded, " today "):
		return models.DateRange{From: startOfDay(now), To: now}, true
	case strings.Contains(padded, " yesterday "):
		y := now.AddDate(0, 0, -1)
		return models.DateRange{From: startOfDay(y), To: endOfDay(y)}, true
	case strings.Contains(padded, " this week "):
		return models.DateRange{From: startOfWeek(now), To: now}, true
	case strings.Contains(padded, " last week "):
		return models.DateRange{From: now.AddDate(0, 0, -7), To: now}, true
	case strings.Contains(padded, " this month "):
		return models.DateRange{From: startOfMonth(now), To: now}, true
	case strings.Contains(padded, " last month "):
		return models.DateRange{From: now.AddDate(0, 0, -30), To: now}, true
	case strings.Contains(padded, " this year "):
		return models.DateRange{From: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), To: now}, true
	}

	if m := singleDateRe.FindStringSubmatch(raw); m != nil {
		if day, err := time.Parse("2006-01-02", m[1]); err == nil {
			return models.DateRange{From: day, To: endOfDay(day)}, true
		}
	}
	return models.DateRange{}, false
}

func amount(raw string) (decimal.Decimal, bool) {
	// skip numbers that are part of a date phrase
	stripped := lastNUnitsRe.ReplaceAllString(raw, "")
	stripped = singleDateRe.ReplaceAllString(stripped, "")
	m := amountRe.FindStringSubmatch(stripped)
	if m == nil {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// categoryAliases maps utterance words onto canonical spending categories.
var categoryAliases = map[string]string{
	"groceries":      "groceries",
	"grocery":        "groceries",
	"dining":         "dining",
	"restaurants":    "dining",
	"restaurant":     "dining",
	"travel":         "travel",
	"utilities":      "utilities",
	"entertainment":  "entertainment",
	"shopping":       "shopping",
	"rent":           "housing",
	"housing":        "housing",
	"transportation": "transportation",
	"transport":      "transportation",
	"gas":            "transportation",
}

func category(normalized string) (string, bool) {
	for _, word := range strings.Fields(normalized) {
		if c, ok := categoryAliases[word]; ok {
			return c, true
		}
	}
	return "", false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday start
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
