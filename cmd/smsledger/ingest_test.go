package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/momoledger/smsledger/internal/plugins"
	"github.com/momoledger/smsledger/pkg/config"
)

func TestWriterClient(t *testing.T) {
	registry, err := plugins.Builtin()
	if err != nil {
		t.Fatalf("registering plugins: %v", err)
	}

	tests := []struct {
		name       string
		writer     string
		wantClient bool
		wantErr    bool
	}{
		{name: "file writer needs no client", writer: "json"},
		{name: "sheets without credentials", writer: "sheets", wantErr: true},
		{name: "unknown writer", writer: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.WriterPlugin = tt.writer
			cfg.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")

			client, err := writerClient(context.Background(), registry, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("writerClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (client != nil) != tt.wantClient {
				t.Errorf("writerClient() client = %v, wantClient %v", client, tt.wantClient)
			}
		})
	}
}
