package commands

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/cash/internal/conv"
	"github.com/hupe1980/cash/model"
)

// LoadCSV reads a data set with a header row and numeric columns.
//
// Every column except idColumn becomes a coordinate. Without idColumn the
// points are numbered from 1 in row order.
func LoadCSV(r io.Reader, idColumn string) ([]model.Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	header = slices.Clone(header)

	idIdx := -1
	if idColumn != "" {
		for i, h := range header {
			if strings.TrimSpace(h) == idColumn {
				idIdx = i
			}
		}
		if idIdx < 0 {
			return nil, fmt.Errorf("dataset: id column %q not in header", idColumn)
		}
	}
	dim := len(header)
	if idIdx >= 0 {
		dim--
	}

	var points []model.Point
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}

		seq, err := conv.IntToUint32(len(points) + 1)
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", row, err)
		}
		p := model.Point{ID: model.PointID(seq), Coords: make([]float64, 0, dim)}
		for i, field := range rec {
			if i == idIdx {
				id, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32)
				if err != nil {
					return nil, fmt.Errorf("dataset: row %d: id %q: %w", row, field, err)
				}
				p.ID = model.PointID(id)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %q: %w", row, header[i], err)
			}
			p.Coords = append(p.Coords, v)
		}
		points = append(points, p)
	}
	return points, nil
}

// LoadCSVFile reads the data set at path.
func LoadCSVFile(path, idColumn string) ([]model.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, idColumn)
}
