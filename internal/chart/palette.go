package chart

// Palette is the fixed series palette for stacked charts, indexed by the
// series position in the server's order list.
var Palette = [...]string{
	"#2932E1",
	"#00CC88",
	"#981EFF",
	"#066BFF",
	"#3AEB0D",
	"#E71ED5",
	"#25C9FF",
	"#0DEBB0",
	"#FF0287",
	"#00E2FF",
	"#00FF9D",
	"#D50505",
}

// PaletteIndex maps a series index to a palette slot. Past the end of the
// palette the colours repeat from the start.
func PaletteIndex(i int) int {
	if i < 0 {
		i = -i
	}
	return i % len(Palette)
}

// ColorAt returns the palette colour for series index i.
func ColorAt(i int) string {
	return Palette[PaletteIndex(i)]
}
