package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/statechart-tools/janic/pipeline"
	"github.com/statechart-tools/janic/store"
)

func compile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	outputFile := fs.String("output", "", "Write the model to a file (default stdout)")
	workers := fs.Int("workers", 1, "Resolve this many automata concurrently")
	cacheDB := fs.String("cache", "", "Reuse compiled models from this cache database")
	verbose := fs.Bool("verbose", false, "Log pipeline progress to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: janic compile <manifest.yaml> [options]

Compile the statechart network described by a manifest into one
model-checker network document.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
The manifest names the model, lists the chart documents and optional
behavior tree, and declares network-global variables:

  name: traffic
  charts: [controller.scxml, light.scxml]
  globals:
    - {id: cars, type: int, init: "0"}

Examples:
  janic compile system.yaml --output system.jani
  janic compile system.yaml --workers 4 --verbose
  janic compile system.yaml --cache build.db --output system.jani
`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("manifest file required")
	}
	manifestPath := fs.Arg(0)

	m, err := pipeline.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	var cached []byte
	var digest string
	var db *store.Store
	if *cacheDB != "" {
		db, err = store.Open(*cacheDB)
		if err != nil {
			return err
		}
		defer db.Close()
		digest, err = manifestDigest(m, manifestPath)
		if err != nil {
			return err
		}
		model, hit, err := db.Get(digest)
		if err != nil {
			return err
		}
		if hit {
			cached = model
		}
	}

	if cached == nil {
		p := pipeline.New().WithWorkers(*workers)
		if *verbose {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()
			p = p.WithLogger(logger)
		}
		model, err := p.CompileManifest(m, manifestPath)
		if err != nil {
			return err
		}
		cached, err = model.Emit()
		if err != nil {
			return err
		}
		if db != nil {
			if err := db.Put(digest, m.Name, cached); err != nil {
				return err
			}
		}
	}

	if *outputFile == "" {
		_, err := os.Stdout.Write(append(cached, '\n'))
		return err
	}
	return os.WriteFile(*outputFile, cached, 0o644)
}

// manifestDigest hashes the manifest together with every document it
// references, so any input change misses the cache.
func manifestDigest(m *pipeline.Manifest, manifestPath string) (string, error) {
	base := filepath.Dir(manifestPath)
	inputs := [][]byte{}
	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", err
	}
	inputs = append(inputs, manifest)
	files := append([]string(nil), m.Charts...)
	if m.BehaviorTree != "" {
		files = append(files, m.BehaviorTree)
	}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(base, f))
		if err != nil {
			return "", err
		}
		inputs = append(inputs, data)
	}
	return store.Digest(inputs...), nil
}
