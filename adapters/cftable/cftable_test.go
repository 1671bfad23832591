package cftable

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgof/domain/quartet"
)

const table = `t1,t2,t3,t4,CF12_34,CF13_24,CF14_23,ngenes
a,b,c,d,0.8,0.1,0.1,100

a, b, c, e, 0.5, 0.25, 0.25, 40
`

func TestParseRowsWithHeader(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(table))
	require.NoError(t, err)
	records, err := ParseRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, [4]string{"a", "b", "c", "d"}, records[0].Taxa)
	assert.Equal(t, quartet.CF{0.8, 0.1, 0.1}, records[0].Observed)
	assert.Equal(t, 100.0, records[0].NGenes)
	assert.Equal(t, [4]string{"a", "b", "c", "e"}, records[1].Taxa)
	assert.Equal(t, 40.0, records[1].NGenes)
}

func TestParseRowsReordersNamedColumns(t *testing.T) {
	rows := [][]string{
		{"ngenes", "cf14_23", "CF13_24", "CF12_34", "T1", "t2", "t3", "t4", "note"},
		{"7", "0.3", "0.2", "0.5", "w", "x", "y", "z", "ignored"},
	}
	records, err := ParseRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, [4]string{"w", "x", "y", "z"}, records[0].Taxa)
	assert.Equal(t, quartet.CF{0.5, 0.2, 0.3}, records[0].Observed)
	assert.Equal(t, 7.0, records[0].NGenes)
}

func TestParseRowsPositional(t *testing.T) {
	records, err := ParseRows([][]string{{"a", "b", "c", "d", "1", "0", "0"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, quartet.CF{1, 0, 0}, records[0].Observed)
	assert.Equal(t, 0.0, records[0].NGenes)
}

func TestParseRowsErrors(t *testing.T) {
	cases := map[string][][]string{
		"empty":       nil,
		"header only": {columns[:]},
		"bad CF":      {{"a", "b", "c", "d", "x", "0", "0", "3"}},
		"short row":   {{"a", "b", "c", "d", "0.5"}},
		"bad ngenes":  {{"a", "b", "c", "d", "1", "0", "0", "many"}},
	}
	for name, rows := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRows(rows)
			assert.Error(t, err)
		})
	}
}

func results() []quartet.Record {
	return []quartet.Record{
		{Taxa: [4]string{"a", "b", "c", "d"}, Observed: quartet.CF{0.8, 0.1, 0.1}, NGenes: 100,
			Expected: quartet.CF{0.9, 0.05, 0.05}, PValue: 0.01},
		{Taxa: [4]string{"a", "b", "c", "e"}, Observed: quartet.CF{0.5, 0.25, 0.25}, NGenes: 40,
			Expected: quartet.CF{0.6, 0.2, 0.2}, PValue: 0.3},
	}
}

func TestWriteCSVReadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.Equal(t, "a,b,c,d,0.8,0.1,0.1,100,0.9,0.05,0.05,0.01", lines[1])

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	records, err := NewReader(path).ReadRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, results()[1].Observed, records[1].Observed)
	assert.Equal(t, quartet.CF{}, records[1].Expected)
}

func TestWriteExcelReadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(path, results()))

	records, err := NewReader(path).ReadRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for i, want := range results() {
		assert.Equal(t, want.Taxa, records[i].Taxa)
		assert.InDeltaSlice(t, want.Observed[:], records[i].Observed[:], 1e-12)
		assert.Equal(t, want.NGenes, records[i].NGenes)
	}

	_, err = NewReader(path).WithSheet("Missing").ReadRecords()
	assert.Error(t, err)
}

func TestReadMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "none.csv")).ReadRecords()
	assert.Error(t, err)
}
