package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/botirk38/lastcorr/topk"
)

//go:embed templates/heatmap.html.tmpl
var templates embed.FS

var heatmapTmpl = template.Must(template.ParseFS(templates, "templates/heatmap.html.tmpl"))

// HeatmapData is the chart payload: axis categories and [x, y, value]
// triples. Value is nil for cells without a defined coefficient.
type HeatmapData struct {
	XCategories []string `json:"xCategories"`
	YCategories []string `json:"yCategories"`
	Data        [][3]any `json:"data"`
}

// NewHeatmapData converts the grid, rounding values to 4 decimals.
func NewHeatmapData(m *topk.Matrix) HeatmapData {
	d := HeatmapData{
		XCategories: m.XLabels,
		YCategories: m.YLabels,
		Data:        make([][3]any, 0, len(m.Cells)),
	}
	for _, c := range m.Cells {
		var v any
		if c.State == topk.CellDefined {
			v = round4(c.Value)
		}
		d.Data = append(d.Data, [3]any{c.X, c.Y, v})
	}
	return d
}

type heatmapCell struct {
	Class string
	Style template.CSS
	Text  string
}

type heatmapPage struct {
	Title   string
	XLabels []string
	YLabels []string
	JSON    template.JS
	m       *topk.Matrix
}

// Row returns the cells of grid row y, one per X label.
func (p heatmapPage) Row(y int) []heatmapCell {
	out := make([]heatmapCell, len(p.XLabels))
	for x := range p.XLabels {
		c := p.m.At(x, y)
		switch c.State {
		case topk.CellDefined:
			out[x] = heatmapCell{
				Class: "defined",
				Style: template.CSS(fmt.Sprintf("background: rgba(33, 102, 172, %.3f)", math.Abs(c.Value))),
				Text:  fmt.Sprintf("%.4f", c.Value),
			}
		case topk.CellUndefined:
			out[x] = heatmapCell{Class: "undefined", Text: "NaN"}
		default:
			out[x] = heatmapCell{Class: "absent", Text: "-"}
		}
	}
	return out
}

// WriteHeatmap renders the grid as a standalone HTML page. The chart data is
// also embedded as JSON for external charting scripts.
func WriteHeatmap(w io.Writer, title string, m *topk.Matrix) error {
	payload, err := json.Marshal(NewHeatmapData(m))
	if err != nil {
		return err
	}
	return heatmapTmpl.Execute(w, heatmapPage{
		Title:   title,
		XLabels: m.XLabels,
		YLabels: m.YLabels,
		JSON:    template.JS(payload),
		m:       m,
	})
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
