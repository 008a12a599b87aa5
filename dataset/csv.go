package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"housevalue/ml"
)

// Header is the column layout of dataset files. An empty BuildingArea cell
// means the value is missing.
var Header = []string{
	"Rooms", "Distance", "Bathroom", "Car", "Landsize", "BuildingArea",
	"YearBuilt", "Lattitude", "Longtitude", "Regionname", "Price",
}

// WriteCSV writes rows to path, creating parent directories as needed.
func WriteCSV(path string, rows []ml.LabeledRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	if err := Encode(f, rows); err != nil {
		return err
	}
	return f.Close()
}

func Encode(w io.Writer, rows []ml.LabeledRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for i, r := range rows {
		area := ""
		if r.BuildingArea != nil {
			area = formatFloat(*r.BuildingArea)
		}
		record := []string{
			strconv.Itoa(r.Rooms),
			formatFloat(r.Distance),
			strconv.Itoa(r.Bathroom),
			strconv.Itoa(r.Car),
			formatFloat(r.Landsize),
			area,
			strconv.Itoa(r.YearBuilt),
			formatFloat(r.Lattitude),
			formatFloat(r.Longtitude),
			r.Regionname,
			formatFloat(r.Price),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(path string) ([]ml.LabeledRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a dataset. Columns are matched by header name, so their order
// in the file does not matter.
func Decode(r io.Reader) ([]ml.LabeledRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: file is empty")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range Header {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("csv: missing column %q", name)
		}
	}

	rows := make([]ml.LabeledRecord, 0)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		row, err := parseRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(record []string, index map[string]int) (ml.LabeledRecord, error) {
	p := rowParser{record: record, index: index}
	row := ml.LabeledRecord{
		RawRecord: ml.RawRecord{
			Rooms:      p.intCell("Rooms"),
			Distance:   p.floatCell("Distance"),
			Bathroom:   p.intCell("Bathroom"),
			Car:        p.intCell("Car"),
			Landsize:   p.floatCell("Landsize"),
			YearBuilt:  p.intCell("YearBuilt"),
			Lattitude:  p.floatCell("Lattitude"),
			Longtitude: p.floatCell("Longtitude"),
			Regionname: p.cell("Regionname"),
		},
		Price: p.floatCell("Price"),
	}
	if area := p.cell("BuildingArea"); area != "" {
		v := p.floatCell("BuildingArea")
		row.BuildingArea = &v
	}
	if p.err != nil {
		return ml.LabeledRecord{}, p.err
	}
	return row, nil
}

type rowParser struct {
	record []string
	index  map[string]int
	err    error
}

func (p *rowParser) cell(name string) string {
	i := p.index[name]
	if i >= len(p.record) {
		return ""
	}
	return strings.TrimSpace(p.record[i])
}

func (p *rowParser) intCell(name string) int {
	if p.err != nil {
		return 0
	}
	// Some exports write whole numbers as 3.0.
	v, err := strconv.ParseFloat(p.cell(name), 64)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", name, err)
		return 0
	}
	return int(v)
}

func (p *rowParser) floatCell(name string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.cell(name), 64)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", name, err)
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
