package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/awaistahir/grid-analytics/internal/backend"
	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/spf13/cobra"
)

const importBatchSize = 1000

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func readingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readings",
		Short: "Manage device telemetry",
	}

	var batch int
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import readings from a CSV file",
		Long: `Import readings from a CSV file with a header row. Required columns are
device_serial and timestamp; date is optional and every other column must
name a measurement channel. Empty cells are stored as missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				total := 0
				err := readSamples(f, batch, func(samples []engine.Sample) error {
					if err := b.Writer.WriteSamples(cmd.Context(), samples); err != nil {
						return err
					}
					total += len(samples)
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Printf("✓ Imported %d readings into %s\n", total, b.Driver)
				return nil
			})
		},
	}
	importCmd.Flags().IntVar(&batch, "batch", importBatchSize, "Rows per write")

	cmd.AddCommand(importCmd)
	return cmd
}

type csvLayout struct {
	serial    int
	timestamp int
	date      int
	channels  []channelField
}

type channelField struct {
	index  int
	column engine.Column
}

func parseHeader(header []string) (csvLayout, error) {
	layout := csvLayout{serial: -1, timestamp: -1, date: -1}
	for i, name := range header {
		name = strings.TrimSpace(strings.ToLower(name))
		switch name {
		case "device_serial", "device_id":
			layout.serial = i
		case "timestamp":
			layout.timestamp = i
		case "date":
			layout.date = i
		default:
			col, ok := engine.ParseColumn(name)
			if !ok {
				return layout, fmt.Errorf("unknown column %q", name)
			}
			layout.channels = append(layout.channels, channelField{index: i, column: col})
		}
	}
	if layout.serial < 0 || layout.timestamp < 0 {
		return layout, errors.New("header must include device_serial and timestamp")
	}
	return layout, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func (l csvLayout) sample(rec []string) (engine.Sample, error) {
	var s engine.Sample
	s.DeviceID = strings.TrimSpace(rec[l.serial])
	if s.DeviceID == "" {
		return s, errors.New("empty device_serial")
	}

	ts, err := parseTimestamp(strings.TrimSpace(rec[l.timestamp]))
	if err != nil {
		return s, err
	}
	s.Timestamp = ts

	if l.date >= 0 {
		if v := strings.TrimSpace(rec[l.date]); v != "" {
			d, err := time.Parse(engine.DateFormat, v)
			if err != nil {
				return s, fmt.Errorf("invalid date %q", v)
			}
			s.Date = d
		}
	}

	for _, ch := range l.channels {
		v := strings.TrimSpace(rec[ch.index])
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, fmt.Errorf("invalid %s value %q", ch.column, v)
		}
		s.Set(ch.column, f)
		s.Columns = append(s.Columns, ch.column)
	}
	return s, nil
}

// readSamples parses r and hands samples to flush in groups of at most batch
func readSamples(r io.Reader, batch int, flush func([]engine.Sample) error) error {
	if batch <= 0 {
		batch = importBatchSize
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	layout, err := parseHeader(header)
	if err != nil {
		return err
	}

	pending := make([]engine.Sample, 0, batch)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return err
		}

		s, err := layout.sample(rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		pending = append(pending, s)

		if len(pending) == batch {
			if err := flush(pending); err != nil {
				return err
			}
			pending = make([]engine.Sample, 0, batch)
		}
	}

	if len(pending) > 0 {
		return flush(pending)
	}
	return nil
}
