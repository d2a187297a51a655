// Package report writes run outputs for humans: an XLSX workbook of the
// envelope tables and a printed text summary.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
)

// WriteWorkbook writes a workbook with one summary sheet and one sheet per
// envelope table.
func WriteWorkbook(path string, summary *model.RunSummary, envs []*envelope.Envelope) error {
	file := xlsx.NewFile()

	if err := addSummarySheet(file, summary); err != nil {
		return err
	}
	for _, env := range envs {
		if err := addEnvelopeSheet(file, env); err != nil {
			return err
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addSummarySheet(file *xlsx.File, summary *model.RunSummary) error {
	sheet, err := file.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addKV := func(key string, set func(c *xlsx.Cell)) {
		row := sheet.AddRow()
		row.AddCell().Value = key
		set(row.AddCell())
	}

	addKV("points", func(c *xlsx.Cell) { c.SetInt(summary.N) })
	addKV("rejected outside window", func(c *xlsx.Cell) { c.SetInt(summary.Rejected) })
	addKV("window area (m^2)", func(c *xlsx.Cell) { c.SetFloat(summary.WindowArea) })
	addKV("intensity (points/m^2)", func(c *xlsx.Cell) { c.SetFloat(summary.Intensity) })
	addKV("mean NN distance (m)", func(c *xlsx.Cell) { c.SetFloat(summary.MeanNN) })
	addKV("median NN distance (m)", func(c *xlsx.Cell) { c.SetFloat(summary.MedianNN) })
	return nil
}

func addEnvelopeSheet(file *xlsx.File, env *envelope.Envelope) error {
	sheet, err := file.AddSheet(env.Name)
	if err != nil {
		return eris.Wrapf(err, "report: add %s sheet", env.Name)
	}

	header := sheet.AddRow()
	for _, h := range []string{"r", "observed", "theoretical", "lo", "hi"} {
		header.AddCell().Value = h
	}
	for i := range env.R {
		row := sheet.AddRow()
		row.AddCell().SetFloat(env.R[i])
		row.AddCell().SetFloat(env.Obs[i])
		row.AddCell().SetFloat(env.Theo[i])
		row.AddCell().SetFloat(env.Lo[i])
		row.AddCell().SetFloat(env.Hi[i])
	}
	return nil
}
