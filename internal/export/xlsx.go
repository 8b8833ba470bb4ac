// Package export writes persisted metric values into an .xlsx workbook for
// analysts who live in spreadsheets.
package export

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/velmed/callscore/internal/model"
)

// ValueSource supplies the metric rows to export.
type ValueSource interface {
	FetchValues(ctx context.Context, days int) ([]model.MetricValue, error)
}

var header = []string{
	"history_id", "metric_code", "metric_group",
	"value_numeric", "value_label", "value_json",
	"engine_version", "calc_profile", "calc_method", "updated_at",
}

// WriteWorkbook fetches the last N days of metric values and saves them as a
// single-sheet workbook. Returns the number of data rows written.
func WriteWorkbook(ctx context.Context, source ValueSource, days int, path string) (int, error) {
	values, err := source.FetchValues(ctx, days)
	if err != nil {
		return 0, eris.Wrap(err, "export: fetch values")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("metrics")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	headRow := sheet.AddRow()
	for _, h := range header {
		headRow.AddCell().Value = h
	}

	for _, v := range values {
		row := sheet.AddRow()
		row.AddCell().Value = strconv.FormatInt(v.HistoryID, 10)
		row.AddCell().Value = v.Code
		row.AddCell().Value = v.Group
		if v.Numeric != nil {
			row.AddCell().SetFloat(*v.Numeric)
		} else {
			row.AddCell()
		}
		if v.Label != nil {
			row.AddCell().Value = *v.Label
		} else {
			row.AddCell()
		}
		row.AddCell().Value = string(v.JSON)
		row.AddCell().Value = v.EngineVersion
		row.AddCell().Value = v.CalcProfile
		row.AddCell().Value = v.CalcMethod
		row.AddCell().Value = v.UpdatedAt.UTC().Format("2006-01-02 15:04:05")
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrapf(err, "export: save workbook %s", path)
	}
	return len(values), nil
}
