// Package specfile parses SPEC scan log files as written by the mySpot
// beamline control software. The format is line oriented: a file header
// block (#F, #E, #D, #O, #C) followed by blank-line separated scans,
// each with control lines (#S, #D, #P, #C, #L) and whitespace-separated
// data rows.
package specfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// File is a parsed SPEC file.
type File struct {
	Name     string
	Epoch    int64
	Datetime time.Time
	Motors   []string
	Comments []string
	Scans    []*Scan
}

// Scan is one scan block: its control metadata plus the data table.
type Scan struct {
	Number         int
	Command        string
	Datetime       time.Time
	MotorPositions []float64
	Comments       []string
	Columns        []string
	Rows           [][]string
}

// SPEC datetimes are fixed width, e.g. "Sat Oct 17 21:57:43 2020".
const dateLayout = "Mon Jan 02 15:04:05 2006"

// parseDate accepts both zero-padded and space-padded day numbers.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("Mon Jan _2 15:04:05 2006", s)
}

// Load parses a SPEC file from disk.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse reads a SPEC file from r.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	f := &File{}
	inHeader := true
	var current *Scan

	flush := func() {
		if current != nil {
			f.Scans = append(f.Scans, current)
			current = nil
		}
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inHeader {
			if trimmed == "" {
				inHeader = false
				continue
			}
			if err := f.parseHeaderLine(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, "#S") {
			// A new scan may begin without a separating blank line.
			flush()
			current = &Scan{}
			fields := strings.Fields(line)
			if len(fields) > 1 {
				current.Number, _ = strconv.Atoi(fields[1])
			}
			if len(fields) > 2 {
				current.Command = strings.Join(fields[2:], " ")
			}
			continue
		}
		if current == nil {
			current = &Scan{}
		}
		current.parseLine(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return f, nil
}

func (f *File) parseHeaderLine(line string) error {
	switch {
	case strings.HasPrefix(line, "#F"):
		fields := strings.Fields(line)
		if len(fields) > 1 {
			f.Name = fields[1]
		}
	case strings.HasPrefix(line, "#E"):
		fields := strings.Fields(line)
		if len(fields) > 1 {
			epoch, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid epoch %q", fields[1])
			}
			f.Epoch = epoch
		}
	case strings.HasPrefix(line, "#D"):
		t, err := parseDate(strings.TrimPrefix(line, "#D"))
		if err != nil {
			return fmt.Errorf("invalid datetime: %w", err)
		}
		f.Datetime = t
	case strings.HasPrefix(line, "#O"):
		f.Motors = append(f.Motors, strings.Fields(line)[1:]...)
	case strings.HasPrefix(line, "#C"):
		f.Comments = append(f.Comments, strings.TrimSpace(strings.TrimPrefix(line[2:], " ")))
	default:
		return fmt.Errorf("not a valid spec file: unexpected header line %q", line)
	}
	return nil
}

// parseLine handles one scan-body line. Control lines other than the
// known set are skipped; data rows with a field count that does not
// match the column header are dropped (partial rows from interrupted
// scans).
func (s *Scan) parseLine(line string) {
	if strings.HasPrefix(line, "#") {
		switch {
		case strings.HasPrefix(line, "#D"):
			if t, err := parseDate(strings.TrimPrefix(line, "#D")); err == nil {
				s.Datetime = t
			}
		case strings.HasPrefix(line, "#P"):
			for _, field := range strings.Fields(line)[1:] {
				if v, err := strconv.ParseFloat(field, 64); err == nil {
					s.MotorPositions = append(s.MotorPositions, v)
				}
			}
		case strings.HasPrefix(line, "#C"):
			s.Comments = append(s.Comments, strings.TrimSpace(strings.TrimPrefix(line[2:], " ")))
		case strings.HasPrefix(line, "#L"):
			s.Columns = strings.Fields(line)[1:]
		}
		return
	}

	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) != len(s.Columns) {
		return
	}
	s.Rows = append(s.Rows, fields)
}

// HasColumn reports whether the scan table has a column with the given
// name.
func (s *Scan) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the string values of a named column.
func (s *Scan) Column(name string) ([]string, error) {
	idx := -1
	for i, c := range s.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("scan %d has no column %q", s.Number, name)
	}
	out := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Floats returns a named column parsed as float64 values.
func (s *Scan) Floats(name string) ([]float64, error) {
	raw, err := s.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("scan %d column %q row %d: %w", s.Number, name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// Ints returns a named column parsed as integers, accepting float
// formatting such as "3.0".
func (s *Scan) Ints(name string) ([]int, error) {
	raw, err := s.Floats(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(v)
	}
	return out, nil
}
