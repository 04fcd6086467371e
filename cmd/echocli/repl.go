package main

import (
	"context"
	"fmt"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/fatih/color"

	"echocli/internal/executor"
	"echocli/internal/interpreter"
)

// runOnce executes a single command line, for scripted use via -c. The
// command's failure becomes the process exit status.
func runOnce(exec *executor.Executor, line string) error {
	cmd, err := interpreter.Parse(line)
	if err != nil {
		return err
	}
	res, err := exec.Execute(context.Background(), cmd)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

// repl drives the interactive loop. Command failures are printed and the
// loop continues; only exit ends it.
type repl struct {
	exec *executor.Executor
	done bool
}

func runREPL(exec *executor.Executor) {
	r := &repl{exec: exec}
	color.Cyan("echocli - type help for commands, exit to quit")
	p := prompt.New(r.execute, r.complete,
		prompt.OptionTitle("echocli"),
		prompt.OptionPrefix("echo> "),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return r.done }),
	)
	p.Run()
}

func (r *repl) execute(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	cmd, err := interpreter.Parse(line)
	if err != nil {
		color.Red("error: %v", err)
		return
	}
	res, err := r.exec.Execute(context.Background(), cmd)
	if err != nil {
		color.Red("error: %v", err)
		return
	}
	printResult(res)
	if res.Exit {
		r.done = true
	}
}

func printResult(res executor.Result) {
	for _, w := range res.Warnings {
		color.Yellow("warning: %s", w)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	for _, a := range res.Artifacts {
		color.Green("wrote %s", a)
	}
}

var commandSuggestions = []prompt.Suggest{
	{Text: "load", Description: "load survey data and merge positions"},
	{Text: "plot", Description: "time-series line chart"},
	{Text: "scatter", Description: "scatter chart"},
	{Text: "boxplot", Description: "grouped box-and-whisker chart"},
	{Text: "map", Description: "hexagonal aggregation map"},
	{Text: "stats", Description: "descriptive statistics"},
	{Text: "aggregate", Description: "resample the dataset in place"},
	{Text: "create", Description: "derive a temporal feature column"},
	{Text: "calc", Description: "derive an arithmetic column"},
	{Text: "alias", Description: "define column aliases"},
	{Text: "set", Description: "update session settings"},
	{Text: "coords", Description: "coordinate system info"},
	{Text: "help", Description: "show usage"},
	{Text: "exit", Description: "leave the shell"},
}

var modifierSuggestions = []prompt.Suggest{
	{Text: "start_date="},
	{Text: "end_date="},
	{Text: "outliers=iqr"},
	{Text: "outliers=zscore"},
	{Text: "outliers=modified_zscore"},
	{Text: "z_thresh="},
	{Text: "min="},
	{Text: "max="},
	{Text: "negative="},
	{Text: "log="},
	{Text: "xlog="},
	{Text: "ylog="},
	{Text: "smooth=loess"},
	{Text: "smooth=savgol"},
	{Text: "smooth=rolling"},
	{Text: "frac="},
	{Text: "res="},
	{Text: "backend=svg"},
	{Text: "backend=folium"},
}

// complete suggests command verbs on the first word and dataset columns
// plus modifiers afterwards.
func (r *repl) complete(d prompt.Document) []prompt.Suggest {
	word := d.GetWordBeforeCursor()
	if word == "" {
		return nil
	}
	if !strings.Contains(strings.TrimLeft(d.TextBeforeCursor(), " "), " ") {
		return prompt.FilterHasPrefix(commandSuggestions, word, true)
	}

	suggests := make([]prompt.Suggest, 0, len(modifierSuggestions))
	sess := r.exec.Session()
	if sess.HasData() {
		for _, col := range sess.Dataset().Columns() {
			suggests = append(suggests, prompt.Suggest{Text: col, Description: "column"})
		}
	}
	for short, col := range sess.Aliases() {
		suggests = append(suggests, prompt.Suggest{Text: short, Description: "alias for " + col})
	}
	suggests = append(suggests, modifierSuggestions...)
	return prompt.FilterHasPrefix(suggests, word, true)
}
