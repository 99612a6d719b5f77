// Command mash-configgen turns an endpoint YAML configuration into a Go
// source file holding the resolved endpoint and button tables, for builds
// that link the configuration in instead of reading it at start.
//
// Usage:
//
//	mash-configgen -config <path> -output <file> [-package <name>]
//
// The generated file imports the endpoint's internal packages, so the output
// has to live inside this module.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"
)

func main() {
	configPath := flag.String("config", "", "Endpoint YAML configuration")
	output := flag.String("output", "", "Output path for the generated Go file")
	pkg := flag.String("package", "appconfig", "Package name of the generated file")
	flag.Parse()

	if *configPath == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: mash-configgen -config <path> -output <file> [-package <name>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*configPath, *output, *pkg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, output, pkg string) error {
	data, err := load(configPath, pkg)
	if err != nil {
		return err
	}

	code, err := Generate(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := writeFormatted(output, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s (%d endpoints, %d buttons)\n", output, len(data.Endpoints), len(data.Buttons))
	return nil
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
