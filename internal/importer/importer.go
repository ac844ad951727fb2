// Package importer builds candidate Industry records from an uploaded
// spreadsheet of subscription rows.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

const defaultDailyLimit = 5000

// Column headers as exported by the subscription office; the Persian
// variants appear in older exports.
var (
	subscriptionHeaders = []string{"SubscriptionID", "شناسه اشتراک"}
	nameHeaders         = []string{"IndustryName", "نام صنعت"}
	cityHeaders         = []string{"City", "شهر"}
	addressHeaders      = []string{"Address", "آدرس"}
	meterHeaders        = []string{"MeterName", "نام کنتور"}
	limitHeaders        = []string{"Limit", "محدودیت مصرف"}
)

// Parse reads the first worksheet and derives one Industry per row, keyed by
// the subscription identifier column. A row without an identifier is
// skipped, as is a row whose consumption limit is present but not numeric;
// the rest of the batch proceeds. Rows sharing an identifier collapse to the
// last-parsed row once stored, because the derived primary key is identical.
//
// Derived ids: Industry "IND-<sub>", Meter "M-<sub>". The import path
// supports exactly one meter per row.
func Parse(r io.Reader, logger zerolog.Logger) ([]domain.Industry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	cols := indexHeaders(rows[0])
	var industries []domain.Industry
	for i, row := range rows[1:] {
		sub := strings.TrimSpace(cols.get(row, subscriptionHeaders))
		if sub == "" {
			logger.Warn().Int("row", i+2).Msg("import: row missing subscription id, skipped")
			continue
		}

		limit := float64(defaultDailyLimit)
		if raw := strings.TrimSpace(cols.get(row, limitHeaders)); raw != "" {
			limit, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				logger.Warn().Int("row", i+2).Str("limit", raw).Msg("import: unparseable consumption limit, row skipped")
				continue
			}
		}

		name := cols.get(row, nameHeaders)
		if name == "" {
			name = "صنعت"
		}
		meterName := cols.get(row, meterHeaders)
		if meterName == "" {
			meterName = "کنتور اصلی"
		}

		industries = append(industries, domain.Industry{
			ID:                      "IND-" + sub,
			Name:                    name,
			SubscriptionID:          sub,
			City:                    cols.get(row, cityHeaders),
			Address:                 cols.get(row, addressHeaders),
			AllowedDailyConsumption: limit,
			Meters: []domain.Meter{
				{ID: "M-" + sub, SerialNumber: sub, Name: meterName},
			},
		})
	}
	return industries, nil
}

type headerIndex map[string]int

func indexHeaders(header []string) headerIndex {
	idx := headerIndex{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func (h headerIndex) get(row []string, names []string) string {
	for _, name := range names {
		if i, ok := h[name]; ok && i < len(row) {
			return row[i]
		}
	}
	return ""
}
