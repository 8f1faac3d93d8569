package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var (
	// ErrNoHeader is returned when a file yields no header row.
	ErrNoHeader = errors.New("no header row")
	// ErrNotUTF8 is returned when text content is not valid UTF-8.
	ErrNotUTF8 = errors.New("content is not valid UTF-8")
	// ErrUnsupported is returned for unknown file extensions.
	ErrUnsupported = errors.New("unsupported file type")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidate delimiters in tie-break order
var delimiters = []rune{';', ',', '\t', '|'}

const sniffLines = 10

// Loader reads tables from disk. Load never fails; problems are logged and
// yield an empty table.
type Loader struct {
	Logger *slog.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{Logger: logger}
}

// Load reads the file at path, dispatching on its extension.
func (l *Loader) Load(path string) *Table {
	t, err := l.Read(path)
	if err != nil {
		l.logger().Warn("failed to load table", slog.String("path", path), slog.String("error", err.Error()))
		return &Table{}
	}
	return t
}

// Read is Load with the error surfaced.
func (l *Loader) Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return l.readText(path)
	case ".xls", ".xlsx":
		return readSpreadsheet(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
}

func (l *Loader) logger() *slog.Logger {
	if l == nil || l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

func (l *Loader) readText(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	t, err := parseUTF8(data)
	if err == nil {
		return t, nil
	}
	l.logger().Debug("retrying as latin-1", slog.String("path", path), slog.String("cause", err.Error()))

	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode latin-1: %w", err)
	}
	return parseDelimited(decoded, ';')
}

func parseUTF8(data []byte) (*Table, error) {
	if !utf8.Valid(data) {
		return nil, ErrNotUTF8
	}
	return parseDelimited(data, Sniff(data))
}

// parseDelimited reads a header and data rows, skipping lines that do not
// parse or whose field count differs from the header.
func parseDelimited(data []byte, delim rune) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Columns: cleanHeader(header)}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(rec) != len(t.Columns) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Sniff guesses the field delimiter from the first lines of data. A
// delimiter that appears the same number of times on every sampled line wins;
// otherwise the one most frequent on the header line. Defaults to ','.
func Sniff(data []byte) rune {
	lines := sampleLines(data, sniffLines)
	if len(lines) == 0 {
		return ','
	}

	best, bestScore := rune(0), 0
	for _, d := range delimiters {
		if score := consistentCount(lines, d); score > bestScore {
			best, bestScore = d, score
		}
	}
	if best != 0 {
		return best
	}
	for _, d := range delimiters {
		if n := countOutsideQuotes(lines[0], d); n > bestScore {
			best, bestScore = d, n
		}
	}
	if best == 0 {
		return ','
	}
	return best
}

// maxSampleLine bounds a single sampled line.
const maxSampleLine = 1 << 20

// sampleLines returns up to n non-blank lines from the start of data
// without scanning past them.
func sampleLines(data []byte, n int) []string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), maxSampleLine)

	var out []string
	for len(out) < n && sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// consistentCount returns the per-line count of d when every line has the
// same non-zero count, and 0 otherwise.
func consistentCount(lines []string, d rune) int {
	want := countOutsideQuotes(lines[0], d)
	if want == 0 {
		return 0
	}
	for _, line := range lines[1:] {
		if countOutsideQuotes(line, d) != want {
			return 0
		}
	}
	return want
}

func countOutsideQuotes(line string, d rune) int {
	n, quoted := 0, false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == d && !quoted:
			n++
		}
	}
	return n
}

func readSpreadsheet(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	t := &Table{Columns: cleanHeader(rows[0])}
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
