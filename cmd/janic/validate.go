package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/statechart-tools/janic/diag"
	"github.com/statechart-tools/janic/scxml"
)

func validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: janic validate <chart.scxml> [<chart.scxml> ...]

Parse and structurally validate statechart documents without
compiling. Reports the first problem per document with its element
location and error kind.

Examples:
  janic validate robot.scxml
  janic validate controller.scxml light.scxml
`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("at least one chart file required")
	}

	failed := false
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		chart, err := scxml.Parse(data, path)
		if err != nil {
			failed = true
			var d *diag.Error
			if errors.As(err, &d) {
				fmt.Printf("%s: FAIL [%s] %s\n", path, d.Kind, d.Msg)
			} else {
				fmt.Printf("%s: FAIL %v\n", path, err)
			}
			continue
		}
		fmt.Printf("%s: OK (%s: %d states, %d transitions)\n",
			path, chart.Name, len(chart.AllStates()), len(chart.AllTransitions()))
	}
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}
