package httpapi

import (
	"bytes"
	"fmt"

	"pool-monitor/internal/models"

	"github.com/xuri/excelize/v2"
)

const readingsSheet = "Readings"

// ReadingsExportHeader is the header row of the readings export.
var ReadingsExportHeader = []string{
	"Timestamp (UTC)",
	"Device ID",
	"pH",
	"Turbidity (NTU)",
	"Temperature (°C)",
	"Water Quality",
	"WiFi RSSI (dBm)",
	"Uptime (s)",
}

var readingsColumnWidths = []float64{22, 20, 10, 16, 18, 16, 16, 14}

// GenerateReadingsExport renders readings as an xlsx workbook, one row per reading.
// Absent values are left blank.
func GenerateReadingsExport(readings []models.SensorReading) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; close explicitly on every path.

	index, err := f.NewSheet(readingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ReadingsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(readingsSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(readingsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(readingsSheet, name, name, readingsColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i := range readings {
		row := i + 2
		r := &readings[i]
		values := []any{
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			r.DeviceID,
			derefFloat(r.PH),
			derefFloat(r.Turbidity),
			derefFloat(r.Temperature),
			derefString(r.WaterQuality),
			derefInt(r.WifiRSSI),
			derefInt64(r.Uptime),
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			if err := setCellValue(f, readingsSheet, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if err := f.SetPanes(readingsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefString(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
