// Package artifact reads and writes the pipeline CSV artifact that carries
// records between the resolve, delete and verify stages.
package artifact

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Header is the fixed artifact schema. Stage 1 writes it, stages 2 and 3
// require it.
var Header = []string{"Email", "Port Name", "Auth0 ID"}

// Record is one email-keyed unit of work flowing through all three stages.
// ProviderID empty means the user was not found in the identity provider
// (or the lookup failed); stages 2 and 3 skip provider calls for it.
type Record struct {
	Email      string
	Name       string
	ProviderID string
}

var nameCaser = cases.Title(language.English)

// DeriveName returns the display name for a record. A non-empty hint that
// differs from the email wins; otherwise the name is derived from the email
// local part: split on '.' and '_', each token capitalized.
func DeriveName(email, hint string) string {
	hint = strings.TrimSpace(hint)
	if hint != "" && !strings.EqualFold(hint, email) {
		return hint
	}
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	tokens := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' })
	if len(tokens) == 0 {
		return email
	}
	return nameCaser.String(strings.Join(tokens, " "))
}

func readRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file (header row required)", path)
	}
	if !strings.EqualFold(strings.TrimSpace(rows[0][0]), "email") {
		return nil, fmt.Errorf("%s: first row must be a header starting with %q", path, "Email")
	}
	return rows[1:], nil
}

// ReadInput loads the Stage 1 input: header row plus one email (and optional
// display-name hint) per row. A three-column artifact is also accepted so
// the resolver can be re-run on its own output; the ID column is ignored.
// Rows with an empty email are dropped.
func ReadInput(path string) ([]Record, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		email := strings.TrimSpace(row[0])
		if email == "" {
			continue
		}
		rec := Record{Email: email}
		if len(row) > 1 {
			rec.Name = strings.TrimSpace(row[1])
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no usable rows", path)
	}
	return out, nil
}

// Read loads a full three-column artifact produced by Stage 1.
func Read(path string) ([]Record, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		email := strings.TrimSpace(row[0])
		if email == "" {
			continue
		}
		rec := Record{Email: email}
		if len(row) > 1 {
			rec.Name = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			rec.ProviderID = strings.TrimSpace(row[2])
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no usable rows", path)
	}
	return out, nil
}

// Writer appends artifact rows one at a time, flushing after every row so a
// terminated run keeps the records it already processed.
type Writer struct {
	f *os.File
	w *csv.Writer
}

// NewWriter truncates/creates the artifact and writes the header row.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, w: w}, nil
}

func (a *Writer) Append(rec Record) error {
	if err := a.w.Write([]string{rec.Email, rec.Name, rec.ProviderID}); err != nil {
		return err
	}
	a.w.Flush()
	return a.w.Error()
}

func (a *Writer) Close() error {
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}
