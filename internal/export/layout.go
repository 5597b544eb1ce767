package export

// Layout 导出文档的不可变描述：先完整构建，再一次性序列化
type Layout struct {
	Sheets []Sheet
}

// Column 列定义（表头 + 列宽，单位：字符）
type Column struct {
	Header string
	Width  float64
}

// Sheet 单个工作表
// Rows 不含表头；Rows[i] 写在第 i+2 行（1-based，第1行是表头）
type Sheet struct {
	Name       string
	Columns    []Column
	Rows       [][]any
	RowHeights map[int]float64 // 1-based 行号 -> 行高
	Images     []Image
}

// Anchor 图片左上角所在单元格，0-based
type Anchor struct {
	Col int
	Row int
}

// Image 锚定在单元格上的图片，Width/Height 为显示尺寸（像素）
type Image struct {
	Anchor     Anchor
	Width      int
	Height     int
	PNG        []byte
	Identifier string
}

// Sheet 按名称查找工作表
func (l *Layout) Sheet(name string) (*Sheet, bool) {
	for i := range l.Sheets {
		if l.Sheets[i].Name == name {
			return &l.Sheets[i], true
		}
	}
	return nil, false
}
