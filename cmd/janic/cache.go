package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/statechart-tools/janic/store"
)

func cache(args []string) error {
	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	db := fs.String("db", "build.db", "Cache database file")
	keep := fs.Int("keep", 20, "Entries to keep when pruning")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: janic cache <list|rm|prune> [options]

Inspect or trim the compiled-model cache used by 'compile --cache'.

Subcommands:
  list            Show cached models, newest first
  rm <digest>     Remove one entry
  prune           Keep only the newest entries (see --keep)

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("cache subcommand required")
	}

	s, err := store.Open(*db)
	if err != nil {
		return err
	}
	defer s.Close()

	switch fs.Arg(0) {
	case "list":
		entries, err := s.List(100)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-20s %8d bytes  %s\n",
				e.Digest[:12], e.Name, e.Size, e.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	case "rm":
		if fs.NArg() < 2 {
			return fmt.Errorf("rm needs a digest")
		}
		return s.Delete(fs.Arg(1))
	case "prune":
		removed, err := s.Prune(*keep)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries\n", removed)
		return nil
	default:
		return fmt.Errorf("unknown cache subcommand %q", fs.Arg(0))
	}
}
