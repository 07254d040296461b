package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazelbase/pg-bridge/manifest"
)

func main() {
	var (
		manifestPath = flag.String("manifest", "extension.toml", "Path to extension manifest")
		outDir       = flag.String("out", ".", "Directory to write generated artifacts into")
		check        = flag.Bool("check", false, "Validate the manifest and exit")
	)
	flag.Parse()

	if err := run(*manifestPath, *outDir, *check); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, outDir string, checkOnly bool) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	fmt.Printf("Extension: %s %s\n", m.Name, m.Version)
	if m.Schema != "" {
		fmt.Printf("Schema: %s\n", m.Schema)
	}
	if len(m.Requires) > 0 {
		fmt.Printf("Requires: %v\n", m.Requires)
	}

	if checkOnly {
		fmt.Println("Manifest OK")
		return nil
	}

	controlPath := filepath.Join(outDir, m.ControlFileName())
	if err := os.WriteFile(controlPath, []byte(m.ControlFile()), 0o644); err != nil {
		return fmt.Errorf("write control file: %w", err)
	}
	fmt.Printf("Wrote %s\n", controlPath)
	return nil
}
