package registry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/leapstack-labs/ansfeed/internal/testutil"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

const cadop = `"REGISTRO_OPERADORA";"CNPJ";"Razao_Social";"Nome_Fantasia";"Modalidade";"UF";"Data_Registro_ANS"
"419761";"11222333000181";"SAÚDE TOTAL LTDA";"Total";"Medicina de Grupo";"SP";"2000-01-15"
"419762";"11444777000161";"COOPERATIVA MÉDICA";"";"Cooperativa Médica";"MG";"2001-02-01"
"419761";"99999999999999";"DUPLICADA";"";"";"RJ";""
`

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestParse(t *testing.T) {
	entries, err := Parse(bytes.NewReader(latin1(t, cadop)))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, core.RegistryEntry{
		RegistrationID:   "419761",
		TaxID:            "11222333000181",
		EntityName:       "SAÚDE TOTAL LTDA",
		TradeName:        "Total",
		CategoryCode:     "Medicina de Grupo",
		JurisdictionCode: "SP",
		RegistrationDate: "2000-01-15",
	}, entries[0])
	assert.Equal(t, "Cooperativa Médica", entries[1].CategoryCode)
}

func TestParseWithoutRegistrationColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("CNPJ;UF\n1;SP\n"))
	require.ErrorIs(t, err, ErrNoRegistrationColumn)

	_, err = Parse(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoRegistrationColumn)
}

func TestNewKeepsFirstDuplicate(t *testing.T) {
	entries, err := Parse(bytes.NewReader(latin1(t, cadop)))
	require.NoError(t, err)

	reg := New(entries)

	assert.Equal(t, 2, reg.Len())
	e, ok := reg.Lookup("419761")
	require.True(t, ok)
	assert.Equal(t, "11222333000181", e.TaxID)

	_, ok = reg.Lookup("000000")
	assert.False(t, ok)
	assert.Len(t, reg.Entries(), 2)
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) FetchURL(_ context.Context, url, dir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(url))
	return path, os.WriteFile(path, f.data, 0o600)
}

func TestLoaderDownloadsWhenMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "operators")
	fetcher := &fakeFetcher{data: latin1(t, cadop)}
	l := &Loader{Dir: dir, URL: "https://example.test/" + FileName, Fetcher: fetcher, Logger: testutil.NewTestLogger(t)}

	reg, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 1, fetcher.calls)

	// second load reads the local copy
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestLoaderErrors(t *testing.T) {
	l := &Loader{Dir: t.TempDir()}
	_, err := l.Load(context.Background())
	require.Error(t, err)

	l = &Loader{Dir: t.TempDir(), URL: "https://example.test/x.csv", Fetcher: &fakeFetcher{err: errors.New("offline")}}
	_, err = l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}
