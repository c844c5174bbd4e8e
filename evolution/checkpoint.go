package evolution

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteGenome writes g as a plain numeric table: one gene per line, values
// separated by single spaces.
func WriteGenome(w io.Writer, g *Genome) error {
	writer := csv.NewWriter(w)
	writer.Comma = ' '

	row := make([]string, g.Width())
	for i := 0; i < g.Genes(); i++ {
		for j, v := range g.m.RawRowView(i) {
			row[j] = strconv.FormatFloat(v, 'e', 18, 64)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadGenome parses a table written by WriteGenome. Runs of whitespace and
// lines starting with '#' are accepted.
func ReadGenome(r io.Reader) (*Genome, error) {
	reader := csv.NewReader(r)
	reader.Comma = ' '
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	var rows [][]float64
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGenome, err)
		}
		row := make([]float64, 0, len(record))
		for _, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidGenome, len(rows)+1, err)
			}
			row = append(row, v)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return GenomeFromRows(rows)
}

func SaveCheckpoint(path string, g *Genome) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGenome(file, g); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func LoadCheckpoint(path string) (*Genome, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadGenome(file)
}

// CheckpointName returns "<prefix>-<iteration>.txt".
func CheckpointName(prefix string, iteration int) string {
	return fmt.Sprintf("%s-%d.txt", prefix, iteration)
}

// CheckpointIteration extracts the iteration from a name produced by
// CheckpointName. It returns 0 when the name carries no number.
func CheckpointIteration(path string) int {
	base := filepath.Base(path)
	dash := strings.LastIndex(base, "-")
	dot := strings.LastIndex(base, ".")
	if dash == -1 || dot == -1 || dot < dash {
		return 0
	}
	n, err := strconv.Atoi(base[dash+1 : dot])
	if err != nil || n < 0 {
		return 0
	}
	return n
}
