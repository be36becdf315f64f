// Package export writes collected observations to CSV or XLSX.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/taxa"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "observations"

// columns defines the ordered output columns.
var columns = []string{
	"observation_id",
	"taxon_id",
	"scientific_name",
	"common_name",
	"rank",
	"quality_grade",
	"latitude",
	"longitude",
	"observed_on",
	"place",
	"photo_url",
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unsupported file extension %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// WriteFile writes the collection to path in the format implied by its extension.
func WriteFile(path string, c *taxa.Collection) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close() //nolint:errcheck

	return Write(f, format, c)
}

// Write writes the collection to w.
func Write(w io.Writer, format Format, c *taxa.Collection) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, c)
	case FormatXLSX:
		return WriteXLSX(w, c)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteCSV writes a header row and one row per observation.
func WriteCSV(w io.Writer, c *taxa.Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, o := range c.Observations {
		if err := cw.Write(row(c.Taxon, o)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes a single-sheet workbook with numeric coordinate cells.
func WriteXLSX(w io.Writer, c *taxa.Collection) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().SetString(col)
	}

	for _, o := range c.Observations {
		r := sheet.AddRow()
		r.AddCell().SetInt64(o.ID)
		r.AddCell().SetInt64(c.Taxon.ID)
		r.AddCell().SetString(c.Taxon.Name)
		r.AddCell().SetString(c.Taxon.PreferredCommonName)
		r.AddCell().SetString(c.Taxon.Rank)
		r.AddCell().SetString(o.QualityGrade)
		if o.Coordinates != nil {
			r.AddCell().SetFloat(o.Coordinates.Lat)
			r.AddCell().SetFloat(o.Coordinates.Lng)
		} else {
			r.AddCell().SetString("")
			r.AddCell().SetString("")
		}
		r.AddCell().SetString(o.ObservedDate)
		r.AddCell().SetString(o.PlaceLabel)
		r.AddCell().SetString(o.PhotoURL)
	}

	return eris.Wrap(file.Write(w), "export: write xlsx")
}

func row(t model.Taxon, o model.Observation) []string {
	lat, lng := "", ""
	if o.Coordinates != nil {
		lat = strconv.FormatFloat(o.Coordinates.Lat, 'f', -1, 64)
		lng = strconv.FormatFloat(o.Coordinates.Lng, 'f', -1, 64)
	}
	return []string{
		strconv.FormatInt(o.ID, 10),
		strconv.FormatInt(t.ID, 10),
		t.Name,
		t.PreferredCommonName,
		t.Rank,
		o.QualityGrade,
		lat,
		lng,
		o.ObservedDate,
		o.PlaceLabel,
		o.PhotoURL,
	}
}
