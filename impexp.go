package capgains

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// this file contains functions to handle the import/export formats.

// BrokerDateLayout is the date layout of the broker activity export, like 05-Apr-23.
const BrokerDateLayout = "02-Jan-06"

// activityColumns is the column order of the broker activity export.
var activityColumns = []string{"date", "description", "investment", "assetcode", "pot", "account", "quantity", "price", "total"}

// ImportActivities reads activities from the broker CSV export.
//
// The first line is a header and is skipped. Every row is checked, and all the
// errors found are returned together so that a file can be fixed in one go.
func ImportActivities(r io.Reader) ([]Activity, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(activityColumns)
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read header: %w", err)
	}

	var activities []Activity
	var errs []error
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv errors already carry the line number.
			errs = append(errs, err)
			continue
		}
		line, _ := reader.FieldPos(0)
		a, err := parseActivity(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		activities = append(activities, a)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return activities, nil
}

func parseActivity(record []string) (Activity, error) {
	on, err := date.ParseLayout(BrokerDateLayout, record[0])
	if err != nil {
		return Activity{}, err
	}
	kind, err := ParseKind(record[1])
	if err != nil {
		return Activity{}, err
	}
	quantity, err := ParseQuantity(orZero(record[6]))
	if err != nil {
		return Activity{}, err
	}
	price, err := decimal.NewFromString(orZero(record[7]))
	if err != nil {
		return Activity{}, fmt.Errorf("invalid price %q: %w", record[7], err)
	}
	total, err := decimal.NewFromString(orZero(record[8]))
	if err != nil {
		return Activity{}, fmt.Errorf("invalid total %q: %w", record[8], err)
	}
	a := Activity{
		Date:       on,
		Kind:       kind,
		Investment: record[2],
		AssetCode:  record[3],
		Pot:        record[4],
		Account:    record[5],
		Quantity:   quantity,
		Price:      price,
		Total:      total,
	}
	return a, a.Validate()
}

// orZero replaces blank cells by a zero.
func orZero(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "0"
	}
	return s
}

// ImportRates reads fx rates from a CSV file of 'date,_,rate' rows.
//
// The first line is a header and is skipped. Rows without a rate are skipped
// with a warning.
func ImportRates(r io.Reader, logger *slog.Logger) ([]FxRate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read header: %w", err)
	}

	var rates []FxRate
	var errs []error
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) < 3 || strings.TrimSpace(record[2]) == "" {
			logger.Warn("skipping fx row without rate", "line", line, "date", record[0])
			continue
		}
		on, err := date.Parse(record[0])
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		rate, err := decimal.NewFromString(record[2])
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: invalid rate %q: %w", line, record[2], err))
			continue
		}
		if !rate.IsPositive() {
			errs = append(errs, fmt.Errorf("line %d: rate %s is not positive", line, rate))
			continue
		}
		rates = append(rates, FxRate{Date: on, Rate: rate})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rates, nil
}

// ExportLinks writes links to 'w' as JSONL, one link per line.
func ExportLinks(w io.Writer, links iter.Seq2[Link, error]) error {
	enc := json.NewEncoder(w)
	for l, err := range links {
		if err != nil {
			return err
		}
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("cannot encode link %d: %w", l.ID, err)
		}
	}
	return nil
}
