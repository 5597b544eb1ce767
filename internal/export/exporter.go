// Package export builds the two-sheet patient workbook.
//
// Export runs in two phases. BuildLayout turns the record sequence into a
// Layout: header and cell values, column widths, row heights and image
// anchors, with one Code128 PNG per record. Render then serializes the layout
// once with excelize. Row i of the record sequence always lands on sheet row
// i+2 (header on row 1), so the same input produces the same layout.
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wisefido-patients/internal/barcode"
	"wisefido-patients/internal/domain"

	"go.uber.org/zap"
)

const (
	// Filename 导出文件名
	Filename = "Patient_Records.xlsx"
	// ContentType OpenXML 表格 MIME
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DetailSheet  = "Patients"
	SummarySheet = "Barcodes"

	// 条码列（0-based）
	detailBarcodeCol  = 9
	summaryBarcodeCol = 2
)

// ErrExportFailed 导出整体失败
var ErrExportFailed = errors.New("patient export failed")

// DetailColumns 明细表列（顺序固定）
var DetailColumns = []Column{
	{Header: "ID", Width: 10},
	{Header: "Name", Width: 20},
	{Header: "Age", Width: 8},
	{Header: "Gender", Width: 10},
	{Header: "Blood Type", Width: 10},
	{Header: "Contact", Width: 15},
	{Header: "Address", Width: 25},
	{Header: "Medical History", Width: 30},
	{Header: "Registration Date", Width: 20},
	{Header: "Barcode", Width: 30},
}

// SummaryColumns 条码汇总表列
var SummaryColumns = []Column{
	{Header: "Patient ID", Width: 10},
	{Header: "Patient Name", Width: 20},
	{Header: "Barcode", Width: 30},
}

// Options 导出参数
type Options struct {
	// SkipFailedRows 为 false（默认）时任一条码失败即整体失败；
	// 为 true 时保留该行文本、不放图片并记录告警
	SkipFailedRows bool
	DateLayout     string
	Location       *time.Location
	Barcode        barcode.Options
	ImageWidth     int
	ImageHeight    int
	RowHeight      float64
}

func DefaultOptions() Options {
	return Options{
		DateLayout:  "1/2/2006",
		Location:    time.Local,
		Barcode:     barcode.SheetOptions(),
		ImageWidth:  150,
		ImageHeight: 45,
		RowHeight:   45,
	}
}

// Exporter SpreadsheetExporter
type Exporter struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Exporter {
	def := DefaultOptions()
	if opts.DateLayout == "" {
		opts.DateLayout = def.DateLayout
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.ImageWidth <= 0 {
		opts.ImageWidth = def.ImageWidth
	}
	if opts.ImageHeight <= 0 {
		opts.ImageHeight = def.ImageHeight
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = def.RowHeight
	}
	return &Exporter{opts: opts, logger: logger}
}

// Export 构建并序列化工作簿
func (e *Exporter) Export(ctx context.Context, records []domain.Patient) ([]byte, error) {
	layout, err := e.BuildLayout(ctx, records)
	if err != nil {
		return nil, err
	}
	buf, err := Render(layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	e.logger.Info("Patient workbook exported",
		zap.Int("records", len(records)),
		zap.Int("bytes", len(buf)),
	)
	return buf, nil
}

// BuildLayout 生成两张表的完整描述
func (e *Exporter) BuildLayout(ctx context.Context, records []domain.Patient) (*Layout, error) {
	detail := Sheet{
		Name:       DetailSheet,
		Columns:    DetailColumns,
		Rows:       make([][]any, 0, len(records)),
		RowHeights: make(map[int]float64, len(records)),
	}
	summary := Sheet{
		Name:       SummarySheet,
		Columns:    SummaryColumns,
		Rows:       make([][]any, 0, len(records)),
		RowHeights: make(map[int]float64, len(records)),
	}

	for idx, p := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
		}

		detail.Rows = append(detail.Rows, []any{
			p.Identifier,
			p.Name,
			p.Age,
			p.Gender,
			p.BloodType,
			p.Contact,
			p.Address,
			p.MedicalHistory,
			p.RegisteredAt.In(e.opts.Location).Format(e.opts.DateLayout),
			"",
		})
		summary.Rows = append(summary.Rows, []any{p.Identifier, p.Name, ""})

		// 表头占第1行：记录 idx 的图片锚定在 0-based 行 idx+1，行高设置在 1-based 行 idx+2
		row := idx + 1
		detail.RowHeights[row+1] = e.opts.RowHeight
		summary.RowHeights[row+1] = e.opts.RowHeight

		png, err := barcode.EncodePNG(p.Identifier, e.opts.Barcode)
		if err != nil {
			if !e.opts.SkipFailedRows {
				return nil, fmt.Errorf("%w: record %d (%s): %w", ErrExportFailed, idx, strconv.Quote(p.Identifier), err)
			}
			e.logger.Warn("Skipping barcode image for record",
				zap.Int("record_index", idx),
				zap.String("patient_id", p.Identifier),
				zap.Error(err),
			)
			continue
		}

		detail.Images = append(detail.Images, Image{
			Anchor:     Anchor{Col: detailBarcodeCol, Row: row},
			Width:      e.opts.ImageWidth,
			Height:     e.opts.ImageHeight,
			PNG:        png,
			Identifier: p.Identifier,
		})
		summary.Images = append(summary.Images, Image{
			Anchor:     Anchor{Col: summaryBarcodeCol, Row: row},
			Width:      e.opts.ImageWidth,
			Height:     e.opts.ImageHeight,
			PNG:        png,
			Identifier: p.Identifier,
		})
	}

	return &Layout{Sheets: []Sheet{detail, summary}}, nil
}
