package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"echocli/internal/errors"
)

// paramBag accumulates the fragments recognized by the matcher rules
// before the typed command is assembled.
type paramBag struct {
	kv       []AliasPair // key=value and key:value fragments, in order
	bare     []string    // unconsumed bare tokens, in order
	vsY, vsX string      // from the "A vs B" infix form
	interval string      // bare duration token
}

// get returns the last value bound to key, which implements the
// last-write-wins rule for repeated parameters.
func (b *paramBag) get(key string) (string, bool) {
	for i := len(b.kv) - 1; i >= 0; i-- {
		if b.kv[i].Short == key {
			return b.kv[i].Column, true
		}
	}
	return "", false
}

func (b *paramBag) has(key string) bool {
	_, ok := b.get(key)
	return ok
}

// matcherRule recognizes one syntactic fragment at tokens[i] and records
// it into the bag. It returns the number of tokens consumed; zero means
// the rule does not apply and the next rule is tried.
type matcherRule func(bag *paramBag, tokens []string, i int) (int, error)

// rules is the ordered fragment grammar. Adding a syntax means adding a
// rule here, not extending a branch cascade.
var rules = []matcherRule{
	matchKeyValue,
	matchKeyColon,
	matchVs,
	matchDuration,
	matchBare,
}

// runRules applies the rule list left-to-right across the tokens.
func runRules(bag *paramBag, tokens []string) error {
	for i := 0; i < len(tokens); {
		advanced := false
		for _, rule := range rules {
			n, err := rule(bag, tokens, i)
			if err != nil {
				return err
			}
			if n > 0 {
				i += n
				advanced = true
				break
			}
		}
		if !advanced {
			// matchBare consumes anything, so this is unreachable;
			// guard against a future rule returning 0 for all input.
			i++
		}
	}
	return nil
}

// matchKeyValue recognizes key=value. A date-only value followed by a
// clock token (start_date=2025-03-01 14:00:00) consumes both tokens.
func matchKeyValue(bag *paramBag, tokens []string, i int) (int, error) {
	tok := tokens[i]
	eq := strings.Index(tok, "=")
	if eq <= 0 {
		return 0, nil
	}
	key := strings.ToLower(tok[:eq])
	value := tok[eq+1:]
	if value == "" {
		return 0, errors.Parse("parameter %q has no value", key)
	}
	consumed := 1
	if (key == "start_date" || key == "end_date") && i+1 < len(tokens) && clockRe.MatchString(tokens[i+1]) {
		value = value + " " + tokens[i+1]
		consumed = 2
	}
	bag.kv = append(bag.kv, AliasPair{Short: key, Column: value})
	return consumed, nil
}

// colonParams is the parameter vocabulary shared by the colon and the
// equals spellings, so y:depth and outliers:zscore work the same as
// their key=value forms.
var colonParams = map[string]bool{
	"y": true, "x": true, "group": true, "xbins": true, "xqbins": true,
	"start_date": true, "end_date": true, "outliers": true, "z_thresh": true,
	"min": true, "max": true, "negative": true, "log": true, "xlog": true,
	"ylog": true, "smooth": true, "frac": true, "interval": true,
	"res": true, "resolution": true, "backend": true, "coastline": true,
	"columns": true, "east_lim": true, "north_lim": true,
	"dir": true, "pattern": true, "positions": true,
}

// matchKeyColon recognizes key:value, the colon spelling of key=value.
// Clock tokens such as 14:00:00 start with a digit and fall through to
// the other rules. An identifier-shaped key outside the vocabulary is a
// parse error rather than a silently ignored token.
func matchKeyColon(bag *paramBag, tokens []string, i int) (int, error) {
	tok := tokens[i]
	colon := strings.Index(tok, ":")
	if colon <= 0 || strings.Contains(tok, "=") {
		return 0, nil
	}
	key := strings.ToLower(tok[:colon])
	if !identRe.MatchString(key) {
		return 0, nil
	}
	value := tok[colon+1:]
	if value == "" {
		return 0, errors.Parse("parameter %q has no value", key)
	}
	if !colonParams[key] {
		return 0, errors.Parse("unknown parameter %q", key)
	}
	consumed := 1
	if (key == "start_date" || key == "end_date") && i+1 < len(tokens) && clockRe.MatchString(tokens[i+1]) {
		value = value + " " + tokens[i+1]
		consumed = 2
	}
	bag.kv = append(bag.kv, AliasPair{Short: key, Column: value})
	return consumed, nil
}

// matchVs recognizes the "A vs B" comparison infix: the preceding bare
// token is the y column and the following token is the x column.
func matchVs(bag *paramBag, tokens []string, i int) (int, error) {
	if strings.ToLower(tokens[i]) != "vs" {
		return 0, nil
	}
	if len(bag.bare) == 0 {
		return 0, errors.Parse("%q needs a column on its left side", "vs")
	}
	if i+1 >= len(tokens) {
		return 0, errors.Parse("%q needs a column on its right side", "vs")
	}
	bag.vsY = bag.bare[len(bag.bare)-1]
	bag.bare = bag.bare[:len(bag.bare)-1]
	bag.vsX = tokens[i+1]
	return 2, nil
}

// matchDuration recognizes a bare aggregation interval token.
func matchDuration(bag *paramBag, tokens []string, i int) (int, error) {
	if !durationRe.MatchString(tokens[i]) {
		return 0, nil
	}
	bag.interval = strings.ToLower(tokens[i])
	return 1, nil
}

// matchBare collects any remaining token for task-specific interpretation.
func matchBare(bag *paramBag, tokens []string, i int) (int, error) {
	bag.bare = append(bag.bare, tokens[i])
	return 1, nil
}

var (
	durationRe = regexp.MustCompile(`^(?i)(\d+)(min|h|s|d)$`)
	identRe    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	clockRe    = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	dateOnlyRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ParseInterval validates a duration token of the form <positive int><unit>
// with unit in {min, h, s, d}.
func ParseInterval(token string) (Interval, error) {
	m := durationRe.FindStringSubmatch(token)
	if m == nil {
		return Interval{}, errors.InvalidDuration(token)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return Interval{}, errors.InvalidDuration(token)
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "min":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "s":
		unit = time.Second
	case "d":
		unit = 24 * time.Hour
	}
	return Interval{Token: strings.ToLower(token), Duration: time.Duration(n) * unit}, nil
}

// parseBoolLiteral accepts exactly {true, false, yes, no, 1, 0},
// case-insensitively.
func parseBoolLiteral(key, value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, errors.Parse("parameter %q wants a boolean, got %q (use true/false/yes/no/1/0)", key, value)
}

// parseFloatValue parses a float parameter.
func parseFloatValue(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Parse("parameter %q wants a number, got %q", key, value)
	}
	return f, nil
}

// parseIntValue parses an integer parameter.
func parseIntValue(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Parse("parameter %q wants an integer, got %q", key, value)
	}
	return n, nil
}

// parseDateValue accepts YYYY-MM-DD, YYYY-MM-DD HH:MM:SS, and RFC 3339.
// endOfDay extends a date-only value to 23:59:59 so that a single-day
// filter with end_date=D covers the whole day.
func parseDateValue(key, value string, endOfDay bool) (time.Time, error) {
	if dateOnlyRe.MatchString(value) {
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, errors.Parse("parameter %q has unparseable date %q", key, value)
		}
		if endOfDay {
			t = t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		}
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Parse("parameter %q has unparseable date %q", key, value)
}

// parseLimitPair parses a [min,max] pair such as east_lim=[610000,680000].
func parseLimitPair(key, value string) (*[2]float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return nil, errors.Parse("parameter %q wants [min,max], got %q", key, value)
	}
	var lim [2]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Parse("parameter %q wants [min,max], got %q", key, value)
		}
		lim[i] = f
	}
	return &lim, nil
}
