package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"ridge.run/sentinel/internal/cli"
	"ridge.run/sentinel/internal/config"
	"ridge.run/sentinel/internal/db"
	"ridge.run/sentinel/internal/logging"
)

func runFindings(args []string) int {
	fs := flag.NewFlagSet("findings", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	from := fs.String("from", defaultUTCDayString(), "Start date (YYYY-MM-DD, inclusive)")
	to := fs.String("to", defaultUTCDayString(), "End date (YYYY-MM-DD, inclusive)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	start, end, err := parseUTCDateRange(*from, *to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("findings failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	rows, err := pool.FindingsByDateRange(ctx, start, end)
	if err != nil {
		logger.Error().Err(err).Msg("query findings failed")
		fmt.Fprintf(os.Stderr, "Failed to query findings: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		encoded, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode findings: %v\n", err)
			return 1
		}
		fmt.Println(string(encoded))
		return 0
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "DATE\tORGANIZATION\tKIND\tVALUE_USD\tSTATUS\tHEADLINE")
	for _, row := range rows {
		value := "-"
		if row.ValueUSD != nil {
			value = fmt.Sprintf("%.0f", *row.ValueUSD)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.EventDate.Format("2006-01-02"),
			row.Organization,
			row.EventKind,
			value,
			row.ValidationStatus,
			row.Headline,
		)
	}
	_ = writer.Flush()
	fmt.Printf("%d findings\n", len(rows))
	return 0
}
