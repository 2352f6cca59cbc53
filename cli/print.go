package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"go.viam.com/crowdsim/simulation"
	"go.viam.com/crowdsim/spatialmath"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	if _, err := color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: "); err != nil {
		return
	}
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d)/float64(time.Millisecond))
}

// summaryTable renders one row per named summary.
func summaryTable(names []string, sums []simulation.Summary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		"Variant", "Ticks", "Mean (ms)", "Std (ms)", "P50 (ms)", "P95 (ms)", "Max (ms)",
		"Candidates", "Resolved", "Skipped", "Max depth",
	})
	for i, sum := range sums {
		t.AppendRow(table.Row{
			names[i],
			sum.Ticks,
			ms(sum.StepMean),
			ms(sum.StepStdDev),
			ms(sum.StepP50),
			ms(sum.StepP95),
			ms(sum.StepMax),
			sum.Collision.Candidates,
			sum.Collision.Resolved,
			sum.Collision.Skipped,
			fmt.Sprintf("%.4f", sum.MaxDepth),
		})
	}
	return t.Render()
}

// layerTable renders node count, leaf count and the union of the boxes of each tree layer.
func layerTable(frame simulation.Frame) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Depth", "Nodes", "Leaves", "Volume", "Bounds"})
	for depth := 0; depth < frame.Height; depth++ {
		layer := frame.Layer(depth)
		leaves := 0
		var bounds spatialmath.AABB
		volume := 0.
		for i, n := range layer {
			if n.IsLeaf() {
				leaves++
			}
			volume += n.Box.Volume()
			if i == 0 {
				bounds = n.Box
			} else {
				bounds = bounds.Union(n.Box)
			}
		}
		t.AppendRow(table.Row{depth, len(layer), leaves, fmt.Sprintf("%.1f", volume), bounds.String()})
	}
	return t.Render()
}
