package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"hackstats/internal/providers/common"
	"hackstats/internal/stats"
)

var (
	red       = hexColor(0xe74c3c)
	green     = hexColor(0x2ecc71)
	blue      = hexColor(0x3498db)
	orange    = hexColor(0xf39c12)
	purple    = hexColor(0x9b59b6)
	teal      = hexColor(0x1abc9c)
	grey      = hexColor(0x95a5a6)
	carrot    = hexColor(0xe67e22)
	darkRed   = hexColor(0xc0392b)
	greenSea  = hexColor(0x16a085)
	headroom  = 1.18
	titleSize = vg.Points(16)
	axisSize  = vg.Points(12)
)

func hexColor(rgb uint32) color.RGBA {
	return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}
}

// series is a labelled list of bar heights plus the text drawn on each bar.
type series struct {
	labels      []string
	values      []float64
	annotations []string
}

func fromCounts(counts []stats.Count) series {
	s := series{}
	for _, c := range counts {
		s.labels = append(s.labels, c.Key)
		s.values = append(s.values, float64(c.Count))
		s.annotations = append(s.annotations, common.FormatNumber(int64(c.Count)))
	}
	return s
}

// withShare rewrites annotations as "count (pct%)" against total.
func (s series) withShare(total int) series {
	if total == 0 {
		return s
	}
	for i, v := range s.values {
		s.annotations[i] = fmt.Sprintf("%s (%.1f%%)", common.FormatNumber(int64(v)), v/float64(total)*100)
	}
	return s
}

func fromBuckets(buckets []stats.Bucket) series {
	s := series{}
	for _, b := range buckets {
		s.labels = append(s.labels, b.Label)
		s.values = append(s.values, float64(b.Count))
		s.annotations = append(s.annotations, common.FormatNumber(int64(b.Count)))
	}
	return s
}

func (s series) max() float64 {
	m := 0.0
	for _, v := range s.values {
		m = math.Max(m, v)
	}
	return m
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = titleSize
	p.Title.Padding = vg.Points(12)
	p.X.Label.TextStyle.Font.Size = axisSize
	p.Y.Label.TextStyle.Font.Size = axisSize
	p.Add(plotter.NewGrid())
	return p
}

// verticalBars draws one bar per label. palette is cycled when shorter than
// the series.
func verticalBars(title, yLabel string, s series, palette []color.Color, rotate bool) (*plot.Plot, error) {
	p := newPlot(title)
	p.Y.Label.Text = yLabel

	if len(s.values) > 0 {
		for i, v := range s.values {
			bar, err := plotter.NewBarChart(plotter.Values{v}, vg.Points(40))
			if err != nil {
				return nil, fmt.Errorf("bar %q: %w", s.labels[i], err)
			}
			bar.XMin = float64(i)
			bar.Color = palette[i%len(palette)]
			bar.LineStyle.Width = 0
			p.Add(bar)
		}

		labels, err := barLabels(s, false)
		if err != nil {
			return nil, err
		}
		p.Add(labels)
		p.NominalX(s.labels...)
	}

	if rotate {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = text.XRight
	}
	p.Y.Min = 0
	p.Y.Max = math.Max(1, s.max()*headroom)
	return p, nil
}

// horizontalBars draws the first entry at the top.
func horizontalBars(title, xLabel string, s series, fill color.Color) (*plot.Plot, error) {
	p := newPlot(title)
	p.X.Label.Text = xLabel

	n := len(s.values)
	if n > 0 {
		reversed := series{
			labels:      make([]string, n),
			values:      make([]float64, n),
			annotations: make([]string, n),
		}
		for i := 0; i < n; i++ {
			reversed.labels[n-1-i] = s.labels[i]
			reversed.values[n-1-i] = s.values[i]
			reversed.annotations[n-1-i] = s.annotations[i]
		}

		bars, err := plotter.NewBarChart(plotter.Values(reversed.values), vg.Points(16))
		if err != nil {
			return nil, fmt.Errorf("bars: %w", err)
		}
		bars.Horizontal = true
		bars.Color = fill
		bars.LineStyle.Width = 0
		p.Add(bars)

		labels, err := barLabels(reversed, true)
		if err != nil {
			return nil, err
		}
		p.Add(labels)
		p.NominalY(reversed.labels...)
	}

	p.X.Min = 0
	p.X.Max = math.Max(1, s.max()*headroom)
	return p, nil
}

func barLabels(s series, horizontal bool) (*plotter.Labels, error) {
	xys := make(plotter.XYs, len(s.values))
	for i, v := range s.values {
		if horizontal {
			xys[i] = plotter.XY{X: v, Y: float64(i)}
		} else {
			xys[i] = plotter.XY{X: float64(i), Y: v}
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: s.annotations})
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	for i := range labels.TextStyle {
		if horizontal {
			labels.TextStyle[i].YAlign = text.YCenter
		} else {
			labels.TextStyle[i].XAlign = text.XCenter
		}
	}
	if horizontal {
		labels.Offset = vg.Point{X: vg.Points(4)}
	} else {
		labels.Offset = vg.Point{Y: vg.Points(4)}
	}
	return labels, nil
}
