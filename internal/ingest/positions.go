package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/flower-explorer/vistool/internal/datastore"
	"github.com/flower-explorer/vistool/internal/errors"
)

// Position file columns
const (
	columnLabel    = "#Label"
	columnEasting  = "X_est"
	columnNorthing = "Y_est"
	columnAltitude = "Z_est"
	columnYaw      = "Yaw_est"
)

// FindPositionFile returns the first file in flightDir, by name, that matches pattern.
// It returns an error matching errors.ErrMissingPositionFile when none does.
func FindPositionFile(flightDir, pattern string) (string, error) {
	matches, err := matchFiles(flightDir, pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", errors.New(fmt.Errorf("%s in %s: %w", pattern, flightDir, errors.ErrMissingPositionFile)).
			Component("ingest").
			FileContext(flightDir).
			Build()
	}
	return matches[0], nil
}

// matchFiles lists the regular files directly in dir whose name matches pattern, sorted.
// A missing dir yields no matches.
func matchFiles(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FileError(err, dir)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, e.Name())
		if err != nil {
			return nil, errors.New(err).
				Component("ingest").
				Category(errors.CategoryConfiguration).
				Context("pattern", pattern).
				Build()
		}
		if ok {
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(matches)
	return matches, nil
}

// PositionTable is a parsed camera position file.
type PositionTable struct {
	Positions []datastore.Position
	// Unaligned lists labels whose estimate cells are empty or absent. Photogrammetry exports
	// leave them blank for cameras that could not be aligned.
	Unaligned []string
}

// Rows returns the number of labelled rows in the file.
func (t *PositionTable) Rows() int { return len(t.Positions) + len(t.Unaligned) }

// ReadPositionFile opens and parses a camera position file.
func ReadPositionFile(path string) (*PositionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	defer f.Close()

	table, err := ParsePositions(f)
	if err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return table, nil
}

// ParsePositions parses comma-separated position estimates. The first line is a banner and is
// skipped, the second is the header. The label is the part of #Label before the first dot.
// Blank lines are ignored. Rows with an empty or missing estimate are returned as unaligned;
// a non-empty cell that is not a number fails the whole file.
func ParsePositions(r io.Reader) (*PositionTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, errors.NewStd("empty position file")
		}
		return nil, fmt.Errorf("read banner: %w", err)
	}

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewStd("position file has no header line")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	table := &PositionTable{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		p, aligned, err := parsePositionRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !aligned {
			table.Unaligned = append(table.Unaligned, p.Label)
			continue
		}
		table.Positions = append(table.Positions, p)
	}
	return table, nil
}

type positionColumns struct {
	label, easting, northing, altitude, yaw int
}

func headerIndex(header []string) (positionColumns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, fmt.Errorf("position file header lacks column %s", name)
		}
		return i, nil
	}

	var cols positionColumns
	var err error
	if cols.label, err = lookup(columnLabel); err != nil {
		return cols, err
	}
	if cols.easting, err = lookup(columnEasting); err != nil {
		return cols, err
	}
	if cols.northing, err = lookup(columnNorthing); err != nil {
		return cols, err
	}
	if cols.altitude, err = lookup(columnAltitude); err != nil {
		return cols, err
	}
	if cols.yaw, err = lookup(columnYaw); err != nil {
		return cols, err
	}
	return cols, nil
}

// parsePositionRow reports aligned=false when any estimate is empty or absent
func parsePositionRow(record []string, cols positionColumns) (p datastore.Position, aligned bool, err error) {
	cell := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	label := cell(cols.label)
	if label == "" {
		return p, false, fmt.Errorf("missing %s", columnLabel)
	}
	p.Label, _, _ = strings.Cut(label, ".")
	if p.Label == "" {
		return p, false, errors.NewStd("empty label")
	}

	aligned = true
	for _, est := range []struct {
		col  int
		name string
		dst  *float64
	}{
		{cols.easting, columnEasting, &p.Easting},
		{cols.northing, columnNorthing, &p.Northing},
		{cols.altitude, columnAltitude, &p.Altitude},
		{cols.yaw, columnYaw, &p.Yaw},
	} {
		s := cell(est.col)
		if s == "" {
			aligned = false
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, false, fmt.Errorf("%s: %w", est.name, err)
		}
		*est.dst = v
	}
	return p, aligned, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
