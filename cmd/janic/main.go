package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "compile":
		if err := compile(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "expand":
		if err := expand(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "cache":
		if err := cache(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("janic version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`janic - statechart network to model-checker compiler

Usage:
  janic <command> [options]

Commands:
  compile    Compile a manifest into a model-checker network
  validate   Check statechart documents without emitting a model
  expand     Expand a behavior tree and show the resulting automata
  cache      Inspect or prune the compiled-model cache
  help       Show this help message
  version    Show version information

Examples:
  # Compile a system manifest
  janic compile system.yaml --output system.jani

  # Check charts without compiling
  janic validate robot.scxml arm.scxml

  # Show what a behavior tree expands into
  janic expand mission.xml

  # Reuse compiled models across runs
  janic compile system.yaml --cache build.db --output system.jani

For command-specific help, run:
  janic <command> --help`)
}
