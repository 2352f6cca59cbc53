package visualize

import (
	"io"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Series is one named line of step durations.
type Series struct {
	Name      string
	Durations []time.Duration
}

// StepPlot builds a line plot of step duration in milliseconds against tick, one line per series.
func StepPlot(title string, series ...Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "step (ms)"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Durations) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Durations))
		for j, d := range s.Durations {
			pts[j].X = float64(j + 1)
			pts[j].Y = milliseconds(d)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot plot %q", s.Name)
		}
		line.Color = LayerColor(i, len(series))
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	return p, nil
}

// SaveStepPlot writes StepPlot to path in the format named by its extension.
func SaveStepPlot(path, title string, series ...Series) error {
	p, err := StepPlot(title, series...)
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// WriteStepPlot writes StepPlot to w as a PNG.
func WriteStepPlot(w io.Writer, title string, series ...Series) error {
	p, err := StepPlot(title, series...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// FprintHistogram writes a text histogram of step durations in milliseconds to w.
func FprintHistogram(w io.Writer, durations []time.Duration, bins, width int) error {
	if len(durations) == 0 {
		return nil
	}
	data := make([]float64, len(durations))
	for i, d := range durations {
		data[i] = milliseconds(d)
	}
	hist := histogram.Hist(bins, data)
	return histogram.Fprint(w, hist, histogram.Linear(width))
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
