// Command smsdump writes the bodies of an SMS backup to numbered text files,
// each next to a JSON file with the fields extracted from it.
// This utility is used to collect message samples for extractor tests.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/momoledger/smsledger/pkg/api"
	"github.com/momoledger/smsledger/pkg/logging"
	"github.com/momoledger/smsledger/pkg/reader/smsxml"
)

func main() {
	logger := logging.Setup(logging.FromEnv())

	source := flag.String("source", "sms.xml", "SMS backup XML file")
	outDir := flag.String("out", "testdata/dump", "directory to write the samples to")
	flag.Parse()

	data, err := os.ReadFile(*source)
	if err != nil {
		logger.Error("failed to read source", "file", *source, "error", err)
		os.Exit(1)
	}

	records, err := smsxml.ParseDocument(data)
	if err != nil {
		logger.Error("failed to parse source", "file", *source, "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("failed to create dump directory", "error", err)
		os.Exit(1)
	}

	dumped := 0
	for i, rec := range records {
		ok, err := dumpRecord(*outDir, i+1, rec, logger)
		if err != nil {
			logger.Warn("failed to dump message", "index", i+1, "error", err)
			continue
		}
		if ok {
			dumped++
		}
	}

	logger.Info("sms dump complete", "total_dumped", dumped, "messages", len(records), "directory", *outDir)
}

// dumpRecord writes body_NNN.txt and body_NNN.json. Existing files are left
// alone so hand-corrected expectations survive a re-run.
func dumpRecord(dir string, n int, rec api.Record, logger *slog.Logger) (bool, error) {
	body, ok := rec.Get(api.FieldBody)
	if !ok || body == "" {
		logger.Debug("skipping message without body", "index", n)
		return false, nil
	}

	base := filepath.Join(dir, fmt.Sprintf("body_%03d", n))
	if _, err := os.Stat(base + ".txt"); err == nil {
		logger.Debug("file already exists, skipping", "file", base+".txt")
		return false, nil
	}

	if err := os.WriteFile(base+".txt", []byte(body), 0o644); err != nil {
		return false, fmt.Errorf("writing body: %w", err)
	}

	fields := make(map[string]*string, len(api.ExtractedFields))
	for _, key := range api.ExtractedFields {
		fields[key] = rec[key]
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return false, fmt.Errorf("encoding fields: %w", err)
	}
	if err := os.WriteFile(base+".json", buf.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("writing fields: %w", err)
	}

	logger.Info("dumped message", "file", filepath.Base(base)+".txt", "address", valueOf(rec, api.FieldAddress))
	return true, nil
}

func valueOf(rec api.Record, key string) string {
	v, _ := rec.Get(key)
	return v
}
