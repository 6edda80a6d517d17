package plugins

import (
	"fmt"

	smsxmlreader "github.com/momoledger/smsledger/pkg/plugins/readers/smsxml"
	csvwriter "github.com/momoledger/smsledger/pkg/plugins/writers/csv"
	jsonwriter "github.com/momoledger/smsledger/pkg/plugins/writers/json"
	memorystore "github.com/momoledger/smsledger/pkg/plugins/writers/memory"
	postgreswriter "github.com/momoledger/smsledger/pkg/plugins/writers/postgres"
	sheetswriter "github.com/momoledger/smsledger/pkg/plugins/writers/sheets"
	sqlitewriter "github.com/momoledger/smsledger/pkg/plugins/writers/sqlite"
)

// Builtin returns a registry holding every plugin shipped with smsledger.
func Builtin() (*Registry, error) {
	r := NewRegistry()

	if err := r.RegisterReader(&smsxmlreader.Plugin{}); err != nil {
		return nil, fmt.Errorf("registering smsxml reader: %w", err)
	}

	writers := []WriterPlugin{
		&jsonwriter.Plugin{},
		&csvwriter.Plugin{},
		&sqlitewriter.Plugin{},
		&postgreswriter.Plugin{},
		&sheetswriter.Plugin{},
	}
	for _, w := range writers {
		if err := r.RegisterWriter(w); err != nil {
			return nil, err
		}
	}

	stores := []StorePlugin{
		&jsonwriter.Plugin{},
		&sqlitewriter.Plugin{},
		&postgreswriter.Plugin{},
		&memorystore.Plugin{},
	}
	for _, s := range stores {
		if err := r.RegisterStore(s); err != nil {
			return nil, err
		}
	}

	return r, nil
}
