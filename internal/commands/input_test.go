package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeries(t *testing.T) {
	points, err := readSeries(strings.NewReader("Timestamp_ms, price, volume\n100,1.5,10\n200,2.5,20\n"), "ETH")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, "ETH", points[0].Symbol)
	assert.Equal(t, int64(100), points[0].TimestampMs)
	assert.Equal(t, 1.5, points[0].Price)
	assert.Equal(t, 20.0, points[1].Volume)
}

func TestReadSeries_IndexTimestamps(t *testing.T) {
	points, err := readSeries(strings.NewReader("volume,price\n1,10\n2,11\n"), "")
	require.NoError(t, err)

	assert.Equal(t, int64(0), points[0].TimestampMs)
	assert.Equal(t, int64(1), points[1].TimestampMs)
	assert.Equal(t, 11.0, points[1].Price)
}

func TestReadSeries_Errors(t *testing.T) {
	_, err := readSeries(strings.NewReader("price\n1\n"), "")
	assert.ErrorContains(t, err, `missing column "volume"`)

	_, err = readSeries(strings.NewReader("price,volume\n1,abc\n"), "")
	assert.ErrorContains(t, err, "line 2: volume")
}

func TestReadTrades(t *testing.T) {
	trades, err := readTrades(strings.NewReader(`timestamp_ms,price,quantity,seq,symbol
1000,10,1,7,
1000,11,2,8,ETH
`), "BTC")
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "BTC", trades[0].Symbol)
	assert.Equal(t, int64(7), trades[0].Seq)
	assert.Equal(t, "ETH", trades[1].Symbol)
	assert.Equal(t, 2.0, trades[1].Quantity)
}

func TestReadTrades_NoSymbol(t *testing.T) {
	_, err := readTrades(strings.NewReader("timestamp_ms,price,quantity\n1,2,3\n"), "")
	assert.ErrorContains(t, err, "no symbol")
}
