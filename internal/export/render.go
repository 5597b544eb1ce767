package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Render 将 Layout 序列化为 xlsx 字节
func Render(layout *Layout) ([]byte, error) {
	if layout == nil || len(layout.Sheets) == 0 {
		return nil, fmt.Errorf("layout has no sheets")
	}

	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，出错或写完后再 Close

	for _, sheet := range layout.Sheets {
		if _, err := f.NewSheet(sheet.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(layout.Sheets[0].Name); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

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

	for i := range layout.Sheets {
		if err := renderSheet(f, &layout.Sheets[i], headerStyle); err != nil {
			f.Close()
			return nil, err
		}
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

func renderSheet(f *excelize.File, sheet *Sheet, headerStyle int) error {
	name := sheet.Name

	for i, col := range sheet.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(name, cell, col.Header); err != nil {
			return fmt.Errorf("failed to set header cell %s!%s: %w", name, cell, err)
		}
		if err := f.SetCellStyle(name, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if col.Width > 0 {
			if err := f.SetColWidth(name, colName, colName, col.Width); err != nil {
				return fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for rowIdx, values := range sheet.Rows {
		row := rowIdx + 2 // 第1行是表头
		for colIdx, value := range values {
			if s, ok := value.(string); ok && s == "" {
				continue
			}
			if err := setCellValue(f, name, colIdx+1, row, value); err != nil {
				return fmt.Errorf("failed to set cell value at %s row %d, col %d: %w", name, row, colIdx+1, err)
			}
		}
	}

	rows := make([]int, 0, len(sheet.RowHeights))
	for row := range sheet.RowHeights {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	for _, row := range rows {
		if err := f.SetRowHeight(name, row, sheet.RowHeights[row]); err != nil {
			return fmt.Errorf("failed to set row height %s row %d: %w", name, row, err)
		}
	}

	for _, img := range sheet.Images {
		if err := addImage(f, name, img); err != nil {
			return err
		}
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}

// addImage 按固定显示尺寸锚定图片
func addImage(f *excelize.File, sheet string, img Image) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.PNG))
	if err != nil {
		return fmt.Errorf("failed to read barcode image for %s: %w", img.Identifier, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("barcode image for %s is empty", img.Identifier)
	}

	cell, err := excelize.CoordinatesToCellName(img.Anchor.Col+1, img.Anchor.Row+1)
	if err != nil {
		return fmt.Errorf("failed to convert anchor: %w", err)
	}

	// excelize 按 int(原始尺寸*缩放) 截断，+0.5 避免浮点误差导致少 1px
	err = f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: ".png",
		File:      img.PNG,
		Format: &excelize.GraphicOptions{
			AltText:     img.Identifier,
			ScaleX:      (float64(img.Width) + 0.5) / float64(cfg.Width),
			ScaleY:      (float64(img.Height) + 0.5) / float64(cfg.Height),
			Positioning: "oneCell",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add barcode image at %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
