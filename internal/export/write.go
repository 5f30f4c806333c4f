package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/urban-morph/internal/model"
)

// BuildingIndexHeader is the column order of the per-building table.
var BuildingIndexHeader = []string{
	"osmid", "area", "perimeter", "cplx", "compactness", "vertices",
	"bbox_width", "bbox_length", "eri", "ri",
}

// WriteRegionInfo writes records as one JSON object keyed by GEOID.
func WriteRegionInfo(path string, records map[string]RegionRecord) error {
	for geoid, r := range records {
		if !finite(append([]float64{r.AreaMean, r.HeightMean, r.ComplexityMean, r.BuildingDensity, r.PlotRatio}, r.Feature...)...) {
			return eris.Errorf("export: region %s has non-finite statistics", geoid)
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return eris.Wrap(err, "export: marshal region info")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadRegionInfo loads a file written by WriteRegionInfo.
func ReadRegionInfo(path string) (map[string]RegionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var out map[string]RegionRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrapf(err, "export: decode %s", path)
	}
	return out, nil
}

func indexCells(r model.BuildingIndex) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		r.ID, f(r.Area), f(r.Perimeter), f(r.Cplx), f(r.Compactness), strconv.Itoa(r.Vertices),
		f(r.BBoxWidth), f(r.BBoxLength), f(r.ERI), f(r.RI),
	}
}

// WriteBuildingIndex writes the per-building indicator table as CSV.
func WriteBuildingIndex(w io.Writer, rows []model.BuildingIndex) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BuildingIndexHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(indexCells(r)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", r.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteBuildingIndexFile writes the CSV table to path.
func WriteBuildingIndexFile(path string, rows []model.BuildingIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}

	if err := WriteBuildingIndex(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// WriteBuildingIndexXLSX writes the per-building table to a single-sheet workbook.
func WriteBuildingIndexXLSX(path string, rows []model.BuildingIndex) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("buildings")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range BuildingIndexHeader {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID)
		for _, v := range []float64{r.Area, r.Perimeter, r.Cplx, r.Compactness} {
			row.AddCell().SetFloat(v)
		}
		row.AddCell().SetInt(r.Vertices)
		for _, v := range []float64{r.BBoxWidth, r.BBoxLength, r.ERI, r.RI} {
			row.AddCell().SetFloat(v)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// SortedGEOIDs returns record keys in lexical order.
func SortedGEOIDs(records map[string]RegionRecord) []string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
