// Package barcode renders patient identifiers as Code128 raster images.
//
// The symbol itself comes from boombuler/barcode; this package only lays the
// modules out at a fixed module width and bar height, adds a quiet zone and
// optionally prints the human-readable value under the bars.
package barcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode/code128"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrInvalidSymbolInput 标识为空或包含 Code128 无法编码的字符
var ErrInvalidSymbolInput = errors.New("invalid Code128 input")

// textGap 条码与下方文字之间的像素间距
const textGap = 2

// Options 渲染参数
type Options struct {
	ModuleWidth  int // 最窄条宽（像素）
	Height       int // 条高（像素，不含边距和文字）
	Margin       int // 四周留白（像素）
	BarColor     color.Color
	Background   color.Color
	DisplayValue bool      // 是否在条码下方绘制标识文本
	Font         font.Face // DisplayValue 为 true 时使用
}

// DisplayOptions 页面展示用：条高 50，显示文本
func DisplayOptions() Options {
	return Options{
		ModuleWidth:  2,
		Height:       50,
		Margin:       10,
		BarColor:     color.Black,
		Background:   color.White,
		DisplayValue: true,
		Font:         basicfont.Face7x13,
	}
}

// SheetOptions 表格嵌入用：条高 40，不显示文本
func SheetOptions() Options {
	o := DisplayOptions()
	o.Height = 40
	o.DisplayValue = false
	return o
}

func (o Options) withDefaults() Options {
	if o.ModuleWidth <= 0 {
		o.ModuleWidth = 2
	}
	if o.Height <= 0 {
		o.Height = 100
	}
	if o.Margin < 0 {
		o.Margin = 0
	}
	if o.BarColor == nil {
		o.BarColor = color.Black
	}
	if o.Background == nil {
		o.Background = color.White
	}
	if o.Font == nil {
		o.Font = basicfont.Face7x13
	}
	return o
}

// Validate 检查标识能否用 Code128 编码（非空，仅 ASCII）
func Validate(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidSymbolInput)
	}
	for i, r := range identifier {
		if r > 0x7f {
			return fmt.Errorf("%w: unsupported character %q at offset %d", ErrInvalidSymbolInput, r, i)
		}
	}
	return nil
}

// Encode 将标识渲染为 Code128 图像，结果只取决于标识和 opts
func Encode(identifier string, opts Options) (image.Image, error) {
	if err := Validate(identifier); err != nil {
		return nil, err
	}
	symbol, err := code128.Encode(identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSymbolInput, err)
	}

	o := opts.withDefaults()
	modules := symbol.Bounds().Dx()

	barsWidth := modules * o.ModuleWidth
	width := barsWidth + 2*o.Margin
	height := o.Height + 2*o.Margin
	var metrics font.Metrics
	if o.DisplayValue {
		metrics = o.Font.Metrics()
		height += textGap + (metrics.Ascent + metrics.Descent).Ceil()
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(o.Background), image.Point{}, draw.Src)

	bar := image.NewUniform(o.BarColor)
	for x := 0; x < modules; x++ {
		if !isDark(symbol.At(x, 0)) {
			continue
		}
		x0 := o.Margin + x*o.ModuleWidth
		r := image.Rect(x0, o.Margin, x0+o.ModuleWidth, o.Margin+o.Height)
		draw.Draw(img, r, bar, image.Point{}, draw.Src)
	}

	if o.DisplayValue {
		d := &font.Drawer{Dst: img, Src: bar, Face: o.Font}
		textWidth := d.MeasureString(identifier).Ceil()
		baseline := o.Margin + o.Height + textGap + metrics.Ascent.Ceil()
		d.Dot = fixed.P(o.Margin+(barsWidth-textWidth)/2, baseline)
		d.DrawString(identifier)
	}
	return img, nil
}

// EncodePNG 渲染并编码为 PNG
func EncodePNG(identifier string, opts Options) ([]byte, error) {
	img, err := Encode(identifier, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode barcode png: %w", err)
	}
	return buf.Bytes(), nil
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}
