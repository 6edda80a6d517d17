package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/config"
	"github.com/momoledger/smsledger/pkg/reader/smsxml"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// runStatus checks the configuration, source file and store.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("=== SMS Ledger Status ===")
	fmt.Println()

	allGood := true

	cfg := checkConfig(*configPath, &allGood)
	checkSource(cfg, &allGood)
	checkStore(cfg, &allGood)
	checkCredentials(cfg, &allGood)

	printFinalStatus(allGood)

	return nil
}

func checkConfig(configPath string, allGood *bool) config.Config {
	if configPath == "" {
		fmt.Println("Config file: - Not set (using environment)")
	} else {
		fmt.Printf("Config file (%s): ", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if configPath == "" {
			fmt.Print("Configuration: ")
		}
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return config.Default()
	}
	if configPath != "" {
		fmt.Println("✓ Loaded")
	}
	return cfg
}

func checkSource(cfg config.Config, allGood *bool) {
	fmt.Printf("Source file (%s): ", cfg.Source)
	data, err := os.ReadFile(cfg.Source)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("✗ Not found")
		} else {
			fmt.Printf("✗ %v\n", err)
		}
		*allGood = false
		return
	}

	records, err := smsxml.ParseDocument(data)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Printf("✓ %d messages\n", len(records))
}

func checkStore(cfg config.Config, allGood *bool) {
	fmt.Printf("Store (%s): ", cfg.StorePlugin)

	registry, err := plugins.Builtin()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}

	storeCfg, err := cfg.StorePluginConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}

	quiet := slog.New(slog.DiscardHandler)
	store, err := registry.CreateStore(cfg.StorePlugin, storeCfg, quiet)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p, ok := store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			fmt.Printf("✗ Unreachable: %v\n", err)
			*allGood = false
			return
		}
	}

	records, err := store.LoadAll(ctx)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Printf("✓ %d records\n", len(records))
}

func checkCredentials(cfg config.Config, allGood *bool) {
	if cfg.WriterPlugin != "sheets" {
		return
	}

	fmt.Printf("Credentials file (%s): ", cfg.CredentialsFile)
	if !config.Exists(cfg.CredentialsFile) {
		fmt.Println("✗ Not found")
		*allGood = false
		return
	}
	fmt.Println("✓ Found")
}

func printFinalStatus(allGood bool) {
	fmt.Println()
	if allGood {
		fmt.Println("✓ All checks passed. Ready to run!")
	} else {
		fmt.Println("✗ Some checks failed. See above for details.")
	}
}
