// Package interpreter converts a raw command line into a structured,
// validated command.
//
// Parsing is a pure function of the input text: alias resolution against
// the session happens later, in the executor, so a parsed command can be
// replayed against different alias sets. The grammar is an ordered list
// of independent matcher rules (key=value, key:value, "A vs B", duration
// tokens) applied left-to-right over whitespace-separated tokens; task
// detection prefers an explicit task keyword and falls back to parameter
// shape (a "vs" or y: fragment implies a plotting task).
package interpreter

import (
	"strings"

	"echocli/internal/errors"
)

// Parse converts one input line into a Command or a command-level error.
func Parse(raw string) (Command, error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil, errors.Parse("empty command")
	}
	tokens := strings.Fields(line)
	first := strings.ToLower(tokens[0])

	// Verb-led forms with their own right-hand grammar.
	switch first {
	case "exit", "quit":
		return ExitCommand{}, nil
	case "help", "?":
		return HelpCommand{}, nil
	case "coords":
		return CoordsInfoCommand{}, nil
	case "show":
		if len(tokens) > 1 && strings.ToLower(tokens[1]) == "coords" {
			return CoordsInfoCommand{}, nil
		}
		return nil, errors.Parse("unrecognized command %q", line)
	case "calc":
		return parseCalc(line)
	case "create":
		return parseCreate(tokens[1:])
	case "alias":
		return parseAlias(tokens[1:])
	}

	kind, rest, err := detectTask(tokens)
	if err != nil {
		return nil, err
	}

	bag := &paramBag{}
	if err := runRules(bag, rest); err != nil {
		return nil, err
	}

	switch kind {
	case TaskSet:
		return buildSet(bag)
	case TaskLoad:
		return buildLoad(bag)
	case TaskAggregateTime:
		return buildAggregate(bag)
	case TaskPlotLine:
		return buildPlotLine(bag)
	case TaskPlotScatter:
		return buildPlotScatter(bag)
	case TaskPlotBoxplot:
		return buildPlotBoxplot(bag)
	case TaskMapHex:
		return buildMapHex(bag)
	case TaskComputeStats:
		return buildStats(bag)
	}
	return nil, errors.Parse("unrecognized command %q", line)
}

// detectTask resolves the task kind from an explicit keyword first and
// parameter shape second. It returns the tokens with the consumed task
// keywords removed.
func detectTask(tokens []string) (TaskKind, []string, error) {
	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}

	strip := func(words ...string) []string {
		drop := make(map[string]bool, len(words))
		for _, w := range words {
			drop[w] = true
		}
		var rest []string
		for i, t := range tokens {
			if !drop[lower[i]] {
				rest = append(rest, t)
			}
		}
		return rest
	}

	switch lower[0] {
	case "set":
		return TaskSet, tokens[1:], nil
	case "load":
		return TaskLoad, tokens[1:], nil
	case "aggregate":
		return TaskAggregateTime, strip("aggregate", "time"), nil
	case "map", "hex":
		return TaskMapHex, strip("map", "hex"), nil
	case "stats", "statistics":
		return TaskComputeStats, strip("stats", "statistics", "by", "time"), nil
	}

	contains := func(word string) bool {
		for _, t := range lower {
			if t == word {
				return true
			}
		}
		return false
	}

	// The plotting family: an explicit sub-keyword anywhere wins over
	// the generic "plot".
	switch {
	case contains("scatter"):
		return TaskPlotScatter, strip("scatter", "plot"), nil
	case contains("boxplot") || contains("box"):
		return TaskPlotBoxplot, strip("boxplot", "box", "plot"), nil
	case contains("plot"):
		return TaskPlotLine, strip("plot"), nil
	}

	// Parameter-shape inference.
	if contains("vs") {
		return TaskPlotScatter, tokens, nil
	}
	for _, t := range lower {
		if strings.HasPrefix(t, "y:") || strings.HasPrefix(t, "y=") {
			return TaskPlotLine, tokens, nil
		}
	}
	return "", nil, errors.Parse("unrecognized command %q", strings.Join(tokens, " "))
}

// modifiersFromBag extracts the shared optional modifier vocabulary.
func modifiersFromBag(bag *paramBag) (Modifiers, error) {
	m := Modifiers{ZThresh: 3.0, Frac: 0.1}

	if v, ok := bag.get("start_date"); ok {
		t, err := parseDateValue("start_date", v, false)
		if err != nil {
			return m, err
		}
		m.StartDate = &t
	}
	if v, ok := bag.get("end_date"); ok {
		t, err := parseDateValue("end_date", v, true)
		if err != nil {
			return m, err
		}
		m.EndDate = &t
	}
	if m.StartDate != nil && m.EndDate != nil && m.StartDate.After(*m.EndDate) {
		return m, errors.InvalidRange(
			m.StartDate.Format("2006-01-02 15:04:05"),
			m.EndDate.Format("2006-01-02 15:04:05"))
	}

	if v, ok := bag.get("outliers"); ok {
		switch strings.ToLower(v) {
		case "iqr":
			m.Outliers = "iqr"
		case "zscore":
			m.Outliers = "zscore"
		case "modified_zscore", "modified-zscore", "mzscore":
			m.Outliers = "modified_zscore"
		default:
			return m, errors.Parse("unknown outlier method %q (use iqr, zscore or modified_zscore)", v)
		}
	}
	if v, ok := bag.get("z_thresh"); ok {
		f, err := parseFloatValue("z_thresh", v)
		if err != nil {
			return m, err
		}
		m.ZThresh = f
	}
	if v, ok := bag.get("min"); ok {
		f, err := parseFloatValue("min", v)
		if err != nil {
			return m, err
		}
		m.Min = &f
	}
	if v, ok := bag.get("max"); ok {
		f, err := parseFloatValue("max", v)
		if err != nil {
			return m, err
		}
		m.Max = &f
	}

	for key, dst := range map[string]**bool{
		"negative": &m.Negative,
		"log":      &m.Log,
		"xlog":     &m.XLog,
		"ylog":     &m.YLog,
	} {
		if v, ok := bag.get(key); ok {
			b, err := parseBoolLiteral(key, v)
			if err != nil {
				return m, err
			}
			*dst = &b
		}
	}

	if v, ok := bag.get("smooth"); ok {
		switch strings.ToLower(v) {
		case "loess", "savgol", "rolling":
			m.Smooth = strings.ToLower(v)
		case "true":
			m.Smooth = "loess"
		case "false", "no", "0":
			m.Smooth = ""
		default:
			return m, errors.Parse("unknown smoothing method %q (use loess, savgol or rolling)", v)
		}
	}
	if v, ok := bag.get("frac"); ok {
		f, err := parseFloatValue("frac", v)
		if err != nil {
			return m, err
		}
		m.Frac = f
	}

	token := bag.interval
	if v, ok := bag.get("interval"); ok {
		token = v
	}
	if token != "" {
		iv, err := ParseInterval(token)
		if err != nil {
			return m, err
		}
		m.Interval = &iv
	}
	return m, nil
}

func buildSet(bag *paramBag) (Command, error) {
	if len(bag.kv) == 0 {
		return nil, errors.Parse("set wants key=value pairs")
	}
	return SetCommand{Pairs: bag.kv}, nil
}

func buildLoad(bag *paramBag) (Command, error) {
	cmd := LoadCommand{}
	if v, ok := bag.get("dir"); ok {
		cmd.Dir = v
	}
	if v, ok := bag.get("pattern"); ok {
		cmd.Pattern = v
	}
	if v, ok := bag.get("positions"); ok {
		cmd.Positions = v
	}
	return cmd, nil
}

func buildAggregate(bag *paramBag) (Command, error) {
	token := bag.interval
	if v, ok := bag.get("interval"); ok {
		token = v
	}
	if token == "" {
		return nil, errors.MissingParameter("interval")
	}
	iv, err := ParseInterval(token)
	if err != nil {
		return nil, err
	}
	cmd := AggregateTimeCommand{Interval: iv}
	if v, ok := bag.get("y"); ok {
		cmd.Column = v
	}
	return cmd, nil
}

// yColumn resolves the measurement column from the y/column/value keys or
// the first leftover bare token.
func yColumn(bag *paramBag) string {
	for _, key := range []string{"y", "column", "value"} {
		if v, ok := bag.get(key); ok {
			return v
		}
	}
	if len(bag.bare) > 0 {
		return bag.bare[0]
	}
	return ""
}

func buildPlotLine(bag *paramBag) (Command, error) {
	mods, err := modifiersFromBag(bag)
	if err != nil {
		return nil, err
	}
	y := yColumn(bag)
	if y == "" {
		return nil, errors.MissingParameter("y")
	}
	return PlotLineCommand{Y: y, Mods: mods}, nil
}

func buildPlotScatter(bag *paramBag) (Command, error) {
	mods, err := modifiersFromBag(bag)
	if err != nil {
		return nil, err
	}
	cmd := PlotScatterCommand{Mods: mods}
	if bag.vsY != "" {
		cmd.Y = bag.vsY
		cmd.X = bag.vsX
	}
	if v, ok := bag.get("y"); ok {
		cmd.Y = v
	}
	if v, ok := bag.get("x"); ok {
		cmd.X = v
	}
	if cmd.Y == "" {
		cmd.Y = yColumn(bag)
	}
	if cmd.Y == "" {
		return nil, errors.MissingParameter("y")
	}
	return cmd, nil
}

func buildPlotBoxplot(bag *paramBag) (Command, error) {
	mods, err := modifiersFromBag(bag)
	if err != nil {
		return nil, err
	}
	cmd := PlotBoxplotCommand{Mods: mods}
	cmd.Y = yColumn(bag)
	if cmd.Y == "" {
		return nil, errors.MissingParameter("y")
	}
	if v, ok := bag.get("x"); ok {
		cmd.X = v
	}
	if v, ok := bag.get("group"); ok {
		cmd.Group = v
	}
	if v, ok := bag.get("xbins"); ok {
		n, err := parseIntValue("xbins", v)
		if err != nil {
			return nil, err
		}
		cmd.XBins = n
	}
	if v, ok := bag.get("xqbins"); ok {
		n, err := parseIntValue("xqbins", v)
		if err != nil {
			return nil, err
		}
		cmd.XQBins = n
	}
	return cmd, nil
}

func buildMapHex(bag *paramBag) (Command, error) {
	mods, err := modifiersFromBag(bag)
	if err != nil {
		return nil, err
	}
	cmd := MapHexCommand{Mods: mods, Backend: "svg"}
	cmd.Y = yColumn(bag)
	if cmd.Y == "" {
		return nil, errors.MissingParameter("y")
	}
	for _, key := range []string{"res", "resolution"} {
		if v, ok := bag.get(key); ok {
			n, err := parseIntValue(key, v)
			if err != nil {
				return nil, err
			}
			if n < 0 || n > 15 {
				return nil, errors.Parse("resolution must be within 0..15, got %d", n)
			}
			cmd.Resolution = n
		}
	}
	if v, ok := bag.get("backend"); ok {
		switch strings.ToLower(v) {
		// matplotlib and folium name the backends of the earlier
		// Python tooling; accept them as synonyms.
		case "svg", "matplotlib", "static":
			cmd.Backend = "svg"
		case "html", "folium", "interactive":
			cmd.Backend = "html"
		default:
			return nil, errors.Parse("unknown map backend %q (use svg or html)", v)
		}
	}
	if v, ok := bag.get("coastline"); ok {
		cmd.Coastline = v
	}
	if v, ok := bag.get("east_lim"); ok {
		lim, err := parseLimitPair("east_lim", v)
		if err != nil {
			return nil, err
		}
		cmd.EastLim = lim
	}
	if v, ok := bag.get("north_lim"); ok {
		lim, err := parseLimitPair("north_lim", v)
		if err != nil {
			return nil, err
		}
		cmd.NorthLim = lim
	}
	return cmd, nil
}

func buildStats(bag *paramBag) (Command, error) {
	mods, err := modifiersFromBag(bag)
	if err != nil {
		return nil, err
	}
	v, ok := bag.get("columns")
	if !ok {
		return nil, errors.MissingParameter("columns")
	}
	var columns []string
	for _, c := range strings.Split(v, ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, errors.MissingParameter("columns")
	}
	return StatsCommand{Columns: columns, Mods: mods}, nil
}

// parseCalc splits "calc name=expression" on the first equals sign; the
// expression may contain spaces.
func parseCalc(line string) (Command, error) {
	rest := strings.TrimSpace(line[len("calc"):])
	eq := strings.Index(rest, "=")
	if eq <= 0 {
		return nil, errors.Parse("calc wants <name>=<expression>")
	}
	name := strings.TrimSpace(rest[:eq])
	expr := strings.TrimSpace(rest[eq+1:])
	if name == "" || expr == "" {
		return nil, errors.Parse("calc wants <name>=<expression>")
	}
	if strings.ContainsAny(name, " \t") {
		return nil, errors.Parse("calc variable name %q must be a single identifier", name)
	}
	return CalcCommand{Name: name, Expression: expr}, nil
}

// parseCreate handles "create <feature> from <timestamp_col>".
func parseCreate(tokens []string) (Command, error) {
	if len(tokens) == 0 {
		return nil, errors.MissingParameter("feature")
	}
	feature := strings.ToLower(tokens[0])
	source := "timestamp"
	if len(tokens) >= 3 && strings.ToLower(tokens[1]) == "from" {
		source = tokens[2]
	} else if len(tokens) == 2 {
		source = tokens[1]
	}
	return CreateCommand{Feature: feature, Source: source}, nil
}

// parseAlias handles "alias short=column [short2=column2 ...]".
func parseAlias(tokens []string) (Command, error) {
	if len(tokens) == 0 {
		return nil, errors.Parse("alias wants <short>=<column> pairs")
	}
	var pairs []AliasPair
	for _, tok := range tokens {
		eq := strings.Index(tok, "=")
		if eq <= 0 || eq == len(tok)-1 {
			return nil, errors.Parse("alias definition %q is not <short>=<column>", tok)
		}
		pairs = append(pairs, AliasPair{Short: strings.ToLower(tok[:eq]), Column: tok[eq+1:]})
	}
	return AliasCommand{Pairs: pairs}, nil
}
