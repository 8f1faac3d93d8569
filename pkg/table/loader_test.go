package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/leapstack-labs/ansfeed/internal/testutil"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadSemicolonCSV(t *testing.T) {
	path := writeFile(t, "1T2023.csv", []byte(
		"DATA;REG_ANS;CD_CONTA_CONTABIL;DESCRICAO;VL_SALDO_INICIAL;VL_SALDO_FINAL\n"+
			"2023-01-01;419761;41111;Despesas com Eventos / Sinistros;1.234,56;2.000,00\n"+
			"2023-01-01;419761;31111;Receitas;10;20\n",
	))

	tbl := NewLoader(testutil.NewTestLogger(t)).Load(path)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"DATA", "REG_ANS", "CD_CONTA_CONTABIL", "DESCRICAO", "VL_SALDO_INICIAL", "VL_SALDO_FINAL"}, tbl.Columns)
	assert.Equal(t, "1.234,56", tbl.Value(0, tbl.Column("vl_saldo_inicial")))
}

func TestLoadCommaCSVWithQuotesAndBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(
		"\"REG_ANS\",\"VALOR\"\n"+
			"\"123\",\"1,5\"\n"+
			"\"456\",\"2\"\n",
	)...)
	tbl := NewLoader(nil).Load(writeFile(t, "x.csv", data))

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "REG_ANS", tbl.Columns[0])
	assert.Equal(t, "1,5", tbl.Value(0, 1))
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := writeFile(t, "x.txt", []byte(
		"a;b;c\n"+
			"1;2;3\n"+
			"broken;line\n"+
			"4;5;6\n",
	))
	tbl := NewLoader(testutil.NewTestLogger(t)).Load(path)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"4", "5", "6"}, tbl.Rows[1])
}

func TestLoadFallsBackToLatin1(t *testing.T) {
	text := "REG_ANS;DESCRIÇÃO;VALOR\n1;Despesas com Eventos;10,00\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	tbl := NewLoader(testutil.NewTestLogger(t)).Load(writeFile(t, "legacy.csv", encoded))

	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "DESCRIÇÃO", tbl.Columns[1])
	assert.Equal(t, "Despesas com Eventos", tbl.Value(0, 1))
}

func TestLoadUnknownExtension(t *testing.T) {
	tbl := NewLoader(testutil.NewTestLogger(t)).Load(writeFile(t, "notes.pdf", []byte("a;b\n1;2\n")))
	assert.True(t, tbl.Empty())
}

func TestLoadMissingFile(t *testing.T) {
	tbl := NewLoader(testutil.NewTestLogger(t)).Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, tbl.Empty())
	assert.Empty(t, tbl.Columns)
}

func TestLoadSpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"REG_ANS", "CNPJ", "VL_SALDO_FINAL"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"419761", "11222333000181", "150,00"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"123", "", "1,00"}))
	path := filepath.Join(t.TempDir(), "2T2024.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl := NewLoader(testutil.NewTestLogger(t)).Load(path)

	require.Equal(t, 2, tbl.Len(), "blank row 3 is skipped")
	assert.Equal(t, []string{"REG_ANS", "CNPJ", "VL_SALDO_FINAL"}, tbl.Columns)
	assert.Equal(t, "11222333000181", tbl.Value(0, 1))
	assert.Equal(t, "", tbl.Value(1, 1))
}

func TestLoadCorruptSpreadsheet(t *testing.T) {
	tbl := NewLoader(testutil.NewTestLogger(t)).Load(writeFile(t, "old.xls", []byte("not a workbook")))
	assert.True(t, tbl.Empty())
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"semicolon", "a;b;c\n1;2;3\n", ';'},
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"tab", "a\tb\n1\t2\n", '\t'},
		{"pipe", "a|b\n1|2\n", '|'},
		{"decimal commas inside semicolon file", "a;b\n1,5;2,5\n3;4\n", ';'},
		{"quoted delimiter ignored", "\"a;x\",b\n\"1;y\",2\n", ','},
		{"single column", "a\n1\n", ','},
		{"empty", "", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff([]byte(tt.data)))
		})
	}
}

func TestSampleLines(t *testing.T) {
	data := "a;b\r\n\n  \n1;2\r\n3;4\n"
	assert.Equal(t, []string{"a;b", "1;2"}, sampleLines([]byte(data), 2))
	assert.Equal(t, []string{"a;b", "1;2", "3;4"}, sampleLines([]byte(data), 10))
	assert.Empty(t, sampleLines(nil, 10))

	// Only the leading lines are sampled in a large file.
	var big strings.Builder
	big.WriteString("h1;h2\n")
	for i := 0; i < 100000; i++ {
		big.WriteString("x,y,z\n")
	}
	lines := sampleLines([]byte(big.String()), sniffLines)
	assert.Len(t, lines, sniffLines)
	assert.Equal(t, "h1;h2", lines[0])
}

func TestTableHelpers(t *testing.T) {
	tbl := New([]string{"A", "b"}, []string{"1", "2"}, []string{"3"})
	assert.Equal(t, 1, tbl.Column("B"))
	assert.Equal(t, -1, tbl.Column("c"))
	assert.Equal(t, "", tbl.Value(1, 1))
	assert.Equal(t, "", tbl.Value(5, 0))

	filtered := tbl.Filter(func(r []string) bool { return r[0] == "3" })
	assert.Equal(t, 1, filtered.Len())
	assert.Equal(t, tbl.Columns, filtered.Columns)

	var nilTable *Table
	assert.True(t, nilTable.Empty())
}
