package visualize

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"go.viam.com/crowdsim/config"
	"go.viam.com/crowdsim/logging"
	"go.viam.com/crowdsim/simulation"
	"go.viam.com/crowdsim/utils"
)

// cellAspect is the height of a terminal cell divided by its width.
const cellAspect = 2

// stepWindow is how many ticks the step time on the status line averages over.
const stepWindow = 30

// ViewerOptions configures a Viewer.
type ViewerOptions struct {
	// DT is the tick length in seconds. The simulation runs in real time.
	DT    float64
	Layer int
	Tree  bool
	Boxes bool
	// Sound plays a tone on resolved collisions when set.
	Sound *HitSound
	// Configs delivers reloaded configs, applied to the simulation between ticks.
	Configs <-chan config.Config
}

type tickFrame struct {
	frame  simulation.Frame
	report simulation.TickReport
}

// A Viewer shows a running simulation in a terminal.
type Viewer struct {
	screen tcell.Screen
	logger logging.Logger

	mu    sync.Mutex
	opts  ViewerOptions
	last  *tickFrame
	// ticks counts the frames shown.
	ticks int64
	steps *utils.RollingAverage
}

// NewViewer returns a viewer drawing on screen, which must already be initialized.
func NewViewer(screen tcell.Screen, logger logging.Logger, opts ViewerOptions) *Viewer {
	return &Viewer{screen: screen, logger: logger, opts: opts, steps: utils.NewRollingAverage(stepWindow)}
}

// Run steps sim in real time on one goroutine and draws it on another until ctx is done or the
// user quits. The two exchange frames over a channel that only ever holds the newest one.
func (v *Viewer) Run(ctx context.Context, sim *simulation.Simulation) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := make(chan tickFrame, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := sim.RunRealtime(ctx, v.opts.DT, func(report simulation.TickReport) error {
			v.applyPending(sim)
			select {
			case <-frames:
			default:
			}
			frames <- tickFrame{frame: sim.Snapshot(), report: report}
			return nil
		})
		v.logger.Infow("viewer stopped", "summary", sum.String())
		return err
	})
	g.Go(func() error {
		events := make(chan tcell.Event, 16)
		quit := make(chan struct{})
		defer close(quit)
		go v.screen.ChannelEvents(events, quit)

		for {
			select {
			case <-ctx.Done():
				return nil
			case tf := <-frames:
				v.show(tf)
			case ev := <-events:
				if !v.HandleEvent(ev) {
					cancel()
					return nil
				}
			}
		}
	})
	return g.Wait()
}

// Frames returns how many frames the viewer has shown.
func (v *Viewer) Frames() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ticks
}

func (v *Viewer) applyPending(sim *simulation.Simulation) {
	if v.opts.Configs == nil {
		return
	}
	select {
	case cfg := <-v.opts.Configs:
		if err := sim.ApplyConfig(cfg); err != nil {
			v.logger.Warnw("cannot apply reloaded config", "error", err)
		}
	default:
	}
}

func (v *Viewer) show(tf tickFrame) {
	v.mu.Lock()
	v.last = &tf
	v.ticks++
	v.steps.Add(tf.report.Duration)
	sound := v.opts.Sound
	v.mu.Unlock()

	v.Draw(tf.frame, tf.report)
	if sound != nil {
		sound.Play(tf.report.Collision.Resolved)
	}
}

// HandleEvent reacts to a terminal event and returns false when the viewer should quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		v.screen.Sync()
		v.redraw()
	}
	return true
}

func (v *Viewer) handleKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
	default:
		return true
	}

	v.mu.Lock()
	switch r {
	case 'q':
		v.mu.Unlock()
		return false
	case 'b':
		v.opts.Boxes = !v.opts.Boxes
	case 't':
		v.opts.Tree = !v.opts.Tree
	case 'a':
		v.opts.Layer = AllLayers
	case '+', '=':
		v.opts.Layer++
	case '-':
		if v.opts.Layer > AllLayers {
			v.opts.Layer--
		}
	}
	v.mu.Unlock()
	v.redraw()
	return true
}

func (v *Viewer) redraw() {
	v.mu.Lock()
	last := v.last
	v.mu.Unlock()
	if last != nil {
		v.Draw(last.frame, last.report)
	}
}

// Draw paints frame on the screen: tree nodes as outlines colored by depth, object footprints,
// object centers, and a status line.
func (v *Viewer) Draw(frame simulation.Frame, report simulation.TickReport) {
	v.mu.Lock()
	opts := v.opts
	step := v.steps.Average()
	v.mu.Unlock()

	v.screen.Clear()
	width, height := v.screen.Size()
	if width < 1 || height < 2 {
		v.screen.Show()
		return
	}
	proj := newProjection(bounds(frame), width, height-1, cellAspect)

	if opts.Boxes {
		style := tcell.StyleDefault.Foreground(tcellColor(arenaColor))
		for _, o := range frame.Objects {
			x0, y0, x1, y1 := proj.rect(o.Box, cellAspect)
			v.fill(x0, y0, x1, y1, height-1, '░', style)
		}
	}
	if opts.Tree {
		for i, n := range frame.Nodes {
			depth := frame.Depth[i]
			if opts.Layer != AllLayers && depth != opts.Layer {
				continue
			}
			style := tcell.StyleDefault.Foreground(tcellColor(LayerColor(depth, frame.Height)))
			x0, y0, x1, y1 := proj.rect(n.Box, cellAspect)
			v.outline(x0, y0, x1, y1, height-1, style)
		}
	}

	contacts := make(map[int]bool)
	for _, c := range report.Collision.Contacts {
		contacts[c.Pair.A] = true
		contacts[c.Pair.B] = true
	}
	for _, o := range frame.Objects {
		x, y := proj.point(o.Position, cellAspect)
		glyph, style := 'o', tcell.StyleDefault.Foreground(tcellColor(objectColor))
		if contacts[o.ID] {
			glyph, style = '●', tcell.StyleDefault.Foreground(tcellColor(contactColor))
		}
		v.set(int(math.Floor(x)), int(math.Floor(y)), height-1, glyph, style)
	}

	layer := "all"
	if opts.Layer != AllLayers {
		layer = fmt.Sprint(opts.Layer)
	}
	status := fmt.Sprintf("tick %d  objects %d  resolved %d  height %d  step %.2fms  layer %s  [b]oxes [t]ree [+/-/a] layer [q]uit",
		frame.Tick, len(frame.Objects), report.Collision.Resolved, frame.Height, float64(step)/float64(time.Millisecond), layer)
	runes := []rune(status)
	statusStyle := tcell.StyleDefault.Reverse(true)
	for x := 0; x < width; x++ {
		r := ' '
		if x < len(runes) {
			r = runes[x]
		}
		v.screen.SetContent(x, height-1, r, nil, statusStyle)
	}
	v.screen.Show()
}

func (v *Viewer) set(x, y, maxY int, r rune, style tcell.Style) {
	width, _ := v.screen.Size()
	if x < 0 || y < 0 || x >= width || y >= maxY {
		return
	}
	v.screen.SetContent(x, y, r, nil, style)
}

func (v *Viewer) fill(x0, y0, x1, y1 float64, maxY int, r rune, style tcell.Style) {
	for y := int(math.Floor(y0)); y <= int(math.Floor(y1)); y++ {
		for x := int(math.Floor(x0)); x <= int(math.Floor(x1)); x++ {
			v.set(x, y, maxY, r, style)
		}
	}
}

func (v *Viewer) outline(x0, y0, x1, y1 float64, maxY int, style tcell.Style) {
	left, top := int(math.Floor(x0)), int(math.Floor(y0))
	right, bottom := int(math.Floor(x1)), int(math.Floor(y1))
	for x := left + 1; x < right; x++ {
		v.set(x, top, maxY, tcell.RuneHLine, style)
		v.set(x, bottom, maxY, tcell.RuneHLine, style)
	}
	for y := top + 1; y < bottom; y++ {
		v.set(left, y, maxY, tcell.RuneVLine, style)
		v.set(right, y, maxY, tcell.RuneVLine, style)
	}
	v.set(left, top, maxY, tcell.RuneULCorner, style)
	v.set(right, top, maxY, tcell.RuneURCorner, style)
	v.set(left, bottom, maxY, tcell.RuneLLCorner, style)
	v.set(right, bottom, maxY, tcell.RuneLRCorner, style)
}
