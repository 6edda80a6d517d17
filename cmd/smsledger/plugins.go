package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/extract"
)

func runPlugins(args []string) error {
	fs := flag.NewFlagSet("plugins", flag.ExitOnError)
	showRules := fs.Bool("rules", false, "also print the extraction rules")
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry, err := plugins.Builtin()
	if err != nil {
		return fmt.Errorf("registering plugins: %w", err)
	}

	fmt.Println("Readers:")
	for _, p := range registry.ListReaders() {
		if err := printPlugin(p); err != nil {
			return err
		}
	}

	fmt.Println("Writers:")
	for _, p := range registry.ListWriters() {
		if err := printPlugin(p); err != nil {
			return err
		}
	}

	fmt.Println("Stores:")
	for _, p := range registry.ListStores() {
		if err := printPlugin(p); err != nil {
			return err
		}
	}

	if *showRules {
		fmt.Println("Extraction rules:")
		for _, rs := range extract.Rules() {
			fmt.Printf("  %s\n", rs.Field)
			for _, pattern := range rs.Patterns {
				fmt.Printf("    %s\n", pattern)
			}
		}
	}

	return nil
}

func printPlugin(p plugins.Plugin) error {
	fmt.Printf("  %-10s %s\n", p.Name(), p.Description())
	if scopes := p.RequiredScopes(); len(scopes) > 0 {
		fmt.Printf("             scopes: %s\n", strings.Join(scopes, ", "))
	}

	schema, err := json.MarshalIndent(p.ConfigSchema(), "             ", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s schema: %w", p.Name(), err)
	}
	fmt.Printf("             config: %s\n", schema)
	return nil
}
