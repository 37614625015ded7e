package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// PixelScale maps raw 0..255 intensities onto [0, 1].
const PixelScale = 255.0

type errInvalidLine struct {
	lineNum  int
	fields   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d", e.lineNum, e.expected, e.fields)
}

func (e errInvalidLine) Unwrap() error { return ErrShapeMismatch }

// LoadCSV reads a label-first pixel CSV from disk. See ReadCSV.
func LoadCSV(filename string, inputNum int) ([]Sample, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()
	return ReadCSV(file, inputNum)
}

// ReadCSV parses one sample per record: the label, then inputNum raw pixel
// values which are divided by PixelScale. A first record whose label is not an
// integer is treated as a header and skipped.
func ReadCSV(reader io.Reader, inputNum int) ([]Sample, error) {
	r := csv.NewReader(bufio.NewReader(reader))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var samples []Sample
	lineNum := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %w", err)
		}
		lineNum++

		label, err := strconv.Atoi(record[0])
		if err != nil {
			if lineNum == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: parsing label: %w", lineNum, err)
		}
		if len(record) != inputNum+1 {
			return nil, errInvalidLine{lineNum: lineNum, fields: len(record), expected: inputNum + 1}
		}

		features := make([]float64, inputNum)
		for i := range features {
			x, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing pixel %d: %w", lineNum, i, err)
			}
			features[i] = x / PixelScale
		}
		samples = append(samples, Sample{Features: features, Label: label})
	}
	return samples, nil
}
