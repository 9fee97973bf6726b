package aggregate

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const sentinelExitCode = "404"

// readExitCode reads and trims <dir>/exit_code, returning the sentinel when
// the file is missing or empty.
func readExitCode(dir string) string {
	b, err := os.ReadFile(filepath.Join(dir, "exit_code"))
	if err != nil {
		return sentinelExitCode
	}
	code := strings.TrimSpace(string(b))
	if code == "" {
		return sentinelExitCode
	}
	return code
}

// readLog reads <dir>/log, returning an empty string if it doesn't exist;
// a runner with no attribute never needs its log read at all, so callers
// skip this entirely in that case.
func readLog(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, "log"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading log for %q", dir)
	}
	return string(b), nil
}

// csvWriter accumulates rows for one output file and writes a single header
// line followed by the accumulated rows.
type csvWriter struct {
	header []string
	rows   [][]string
}

func newCSVWriter(header []string) *csvWriter {
	return &csvWriter{header: header}
}

func (w *csvWriter) addRow(row []string) {
	w.rows = append(w.rows, row)
}

func (w *csvWriter) writeFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %q", path)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := writeCSVLine(bw, w.header); err != nil {
		return err
	}
	for _, row := range w.rows {
		if err := writeCSVLine(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeCSVLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteString(","); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(csvEscape(f)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

// csvEscape quotes a field when it contains a comma, quote, or newline, per
// the RFC 4180 rule the header/value columns here can actually trigger
// (runner names, domain paths, and extracted pattern values).
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
