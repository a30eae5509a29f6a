// Command csv-manifest builds a carrier manifest payload from an orders CSV
// without touching the database or the carrier.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifest/backend/internal/domain/manifest"
	"github.com/manifest/backend/internal/infrastructure/config"
	csvimport "github.com/manifest/backend/internal/infrastructure/import"
	"github.com/manifest/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type options struct {
	csvPath    string
	configPath string
	pickup     string
	selection  string
	out        string
	storefront bool
	converted  string
}

var errNoRows = errors.New("no rows after filtering; check the CSV and the --select filter")

func main() {
	var opts options
	flag.StringVar(&opts.csvPath, "csv", "", "Path to the orders CSV (required)")
	flag.StringVar(&opts.configPath, "config", "", "Config file for pickup and compliance defaults")
	flag.StringVar(&opts.pickup, "pickup", "", "Pickup location name (default: first Pickup Location Name in the CSV)")
	flag.StringVar(&opts.selection, "select", "", "Comma separated sale order numbers to include")
	flag.StringVar(&opts.out, "out", "", "Write the payload here instead of stdout")
	flag.BoolVar(&opts.storefront, "storefront", false, "Treat the CSV as a storefront order export")
	flag.StringVar(&opts.converted, "converted", "", "With --storefront, also write the converted manifest CSV here")
	flag.Parse()

	log, err := logger.New(&logger.Config{Level: "info", Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if opts.csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			log.Fatal("Failed to create output file", zap.Error(err))
		}
		defer f.Close()
		w = f
	}

	if err := run(opts, cfg, w, log); err != nil {
		log.Fatal("Manifest build failed", zap.String("csv", opts.csvPath), zap.Error(err))
	}
}

func run(opts options, cfg *config.Config, w io.Writer, log *zap.Logger) error {
	records, err := readRecords(opts, log)
	if err != nil {
		return err
	}

	records = selectRecords(records, opts.selection)
	if len(records) == 0 {
		return errNoRows
	}

	pickup := cfg.Pickup
	if name := pickupName(opts.pickup, records); name != "" {
		pickup.Name = name
	}

	builder := manifest.NewShipmentBuilder(manifest.BuilderConfig{
		Compliance: cfg.Compliance,
		Country:    cfg.Manifest.Country,
	})
	payload := manifest.Payload{
		Shipments:      make([]manifest.Shipment, 0, len(records)),
		PickupLocation: pickup,
	}
	for _, record := range records {
		payload.Shipments = append(payload.Shipments, builder.Build(record))
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	log.Info("Manifest payload written",
		zap.Int("shipments", len(payload.Shipments)),
		zap.String("pickup_location", pickup.Name),
	)
	return nil
}

func readRecords(opts options, log *zap.Logger) ([]manifest.RawRecord, error) {
	f, err := os.Open(opts.csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	if !opts.storefront {
		return csvimport.ReadRecords(f)
	}

	result, err := csvimport.ConvertStorefrontCSV(f, csvimport.DefaultStorefrontConfig())
	if err != nil {
		return nil, err
	}
	for _, skipped := range result.Skipped {
		log.Warn("Storefront row skipped", zap.Int("row", skipped.Row), zap.String("reason", skipped.Message))
	}
	if opts.converted != "" {
		data, err := csvimport.EncodeCSV(result.Columns, result.Records)
		if err != nil {
			return nil, fmt.Errorf("encode converted csv: %w", err)
		}
		if err := os.WriteFile(opts.converted, data, 0o644); err != nil {
			return nil, fmt.Errorf("write converted csv: %w", err)
		}
	}
	return result.Records, nil
}

// selectRecords drops rows without an order id and, when selection is set,
// rows whose order id is not listed.
func selectRecords(records []manifest.RawRecord, selection string) []manifest.RawRecord {
	wanted := map[string]struct{}{}
	for _, id := range strings.Split(selection, ",") {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = struct{}{}
		}
	}

	kept := make([]manifest.RawRecord, 0, len(records))
	for _, record := range records {
		id := manifest.Normalize(record).OrderID
		if id == "" {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[id]; !ok {
				continue
			}
		}
		kept = append(kept, record)
	}
	return kept
}

func pickupName(explicit string, records []manifest.RawRecord) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	for _, record := range records {
		if name, ok := record.Lookup(manifest.KeysPickupLocation...); ok {
			return name
		}
	}
	return ""
}
