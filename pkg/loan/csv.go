package loan

import (
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrMissingColumn = errors.New("missing feature column")
)

// LoadFile reads a CSV dataset from path.
func LoadFile(path string) (*Dataset, error) {
	if path == "" {
		return nil, errors.New("data path required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening data file: %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading data file: %s", path)
	}
	slog.Debug("dataset loaded", "path", path, "records", ds.Len(), "labeled", ds.Labeled)
	return ds, nil
}

// ReadCSV parses a header-first CSV. Columns may appear in any order but
// every feature column is required and unknown columns are rejected.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, errors.Wrap(err, "error reading header")
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name != LabelColumn && !isFeature(name) {
			return nil, errors.Wrapf(ErrUnknownColumn, "%q", h)
		}
		pos[name] = i
	}
	for _, n := range FeatureNames {
		if _, ok := pos[n]; !ok {
			return nil, errors.Wrapf(ErrMissingColumn, "%q", n)
		}
	}
	_, labeled := pos[LabelColumn]

	ds := &Dataset{Labeled: labeled}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "error reading line %d", line)
		}

		vals := make(map[string]float64, len(pos))
		for name, i := range pos {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %s", line, name)
			}
			vals[name] = v
		}

		rec := Record{
			Income:        vals[ColumnIncome],
			LoanAmount:    vals[ColumnLoanAmount],
			CreditScore:   int(math.Round(vals[ColumnCreditScore])),
			Age:           int(math.Round(vals[ColumnAge])),
			ExistingLoans: int(math.Round(vals[ColumnExistingLoans])),
		}
		if labeled {
			d := vals[LabelColumn]
			if d != 0 && d != 1 {
				return nil, errors.Errorf("line %d: label must be 0 or 1, got %v", line, d)
			}
			rec.Default = int(d)
		}
		ds.Records = append(ds.Records, rec)
	}

	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

// WriteCSV writes the dataset in FeatureNames order, label last when present.
func WriteCSV(w io.Writer, ds *Dataset) error {
	if ds == nil {
		return errors.New("dataset required")
	}

	cw := csv.NewWriter(w)
	header := append([]string{}, FeatureNames...)
	if ds.Labeled {
		header = append(header, LabelColumn)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "error writing header")
	}

	for _, r := range ds.Records {
		row := []string{
			strconv.FormatFloat(r.Income, 'f', -1, 64),
			strconv.FormatFloat(r.LoanAmount, 'f', -1, 64),
			strconv.Itoa(r.CreditScore),
			strconv.Itoa(r.Age),
			strconv.Itoa(r.ExistingLoans),
		}
		if ds.Labeled {
			row = append(row, strconv.Itoa(r.Default))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "error writing row")
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "error flushing csv")
}

func isFeature(name string) bool {
	for _, n := range FeatureNames {
		if n == name {
			return true
		}
	}
	return false
}
