package importer

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

var header = []any{"SubscriptionID", "IndustryName", "City", "Address", "MeterName", "Limit"}

func TestParseDerivesIDs(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"123", "Steel Works", "Isfahan", "Industrial Zone 3", "Main Line", "2500"},
	})

	industries, err := Parse(r, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, industries, 1)

	ind := industries[0]
	assert.Equal(t, "IND-123", ind.ID)
	assert.Equal(t, "123", ind.SubscriptionID)
	assert.Equal(t, "Steel Works", ind.Name)
	assert.Equal(t, 2500.0, ind.AllowedDailyConsumption)
	require.Len(t, ind.Meters, 1)
	assert.Equal(t, "M-123", ind.Meters[0].ID)
	assert.Equal(t, "123", ind.Meters[0].SerialNumber)
}

func TestParseSkipsRowWithoutSubscriptionID(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"", "No ID Industries", "Karaj", "", "", ""},
		{"77", "Glassworks", "Qom", "", "", ""},
	})

	industries, err := Parse(r, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, industries, 1)
	assert.Equal(t, "IND-77", industries[0].ID)
}

func TestParseSkipsRowWithBadLimit(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"11", "Bad Limit", "", "", "", "not-a-number"},
		{"22", "Good", "", "", "", ""},
	})

	industries, err := Parse(r, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, industries, 1)
	assert.Equal(t, "IND-22", industries[0].ID)
	// Missing limit falls back to the default.
	assert.Equal(t, 5000.0, industries[0].AllowedDailyConsumption)
}

func TestParsePersianHeaders(t *testing.T) {
	r := workbook(t, [][]any{
		{"شناسه اشتراک", "نام صنعت", "نام کنتور"},
		{"555", "سرامیک البرز", "کوره اصلی"},
	})

	industries, err := Parse(r, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, industries, 1)
	assert.Equal(t, "IND-555", industries[0].ID)
	assert.Equal(t, "سرامیک البرز", industries[0].Name)
	assert.Equal(t, "کوره اصلی", industries[0].Meters[0].Name)
}

func TestParseDuplicateSubscriptionIDsKeepDerivedKey(t *testing.T) {
	r := workbook(t, [][]any{
		header,
		{"9", "First", "", "", "", ""},
		{"9", "Second", "", "", "", ""},
	})

	industries, err := Parse(r, zerolog.Nop())
	require.NoError(t, err)
	// Both rows parse to the same primary key; the bulk put collapses them
	// to the last one.
	require.Len(t, industries, 2)
	assert.Equal(t, industries[0].ID, industries[1].ID)
	assert.Equal(t, "Second", industries[1].Name)
}

func TestParseEmptySheet(t *testing.T) {
	r := workbook(t, [][]any{header})
	industries, err := Parse(r, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, industries)
}
