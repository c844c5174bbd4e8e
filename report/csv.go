package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/SvenDH/go-circle-evolution/evolution"
)

// CSVName is the default metrics file name for a run started at t.
func CSVName(t time.Time) string {
	return "circle-evolution-" + t.Format("02-01-2006_15-04-05") + ".csv"
}

// CSV appends a generation,fitness row for every improvement.
type CSV struct {
	w      *csv.Writer
	closer io.Closer
	err    error
}

func NewCSV(w io.Writer) *CSV {
	c := &CSV{w: csv.NewWriter(w)}
	c.write("generation", "fitness")
	return c
}

// CreateCSV creates (or truncates) the file at path and writes the header.
func CreateCSV(path string) (*CSV, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c := NewCSV(file)
	c.closer = file
	return c, c.err
}

func (c *CSV) Report(ev evolution.Event) {
	switch ev := ev.(type) {
	case evolution.Started:
		if ev.Generation == 0 {
			c.write("0", strconv.FormatFloat(ev.Fitness, 'g', -1, 64))
		}
	case evolution.Improved:
		c.write(strconv.Itoa(ev.Generation), strconv.FormatFloat(ev.Fitness, 'g', -1, 64))
	case evolution.Stopped:
		if err := c.Close(); err != nil {
			evolution.Logger().Error("closing metrics csv", "err", err)
		}
	}
}

func (c *CSV) write(row ...string) {
	if c.err != nil {
		return
	}
	if err := c.w.Write(row); err != nil {
		c.err = fmt.Errorf("writing metrics: %w", err)
		return
	}
	c.w.Flush()
	c.err = c.w.Error()
}

// Err returns the first write error, if any.
func (c *CSV) Err() error { return c.err }

func (c *CSV) Close() error {
	if c.closer == nil {
		return c.err
	}
	err := c.closer.Close()
	c.closer = nil
	if c.err != nil {
		return c.err
	}
	return err
}
