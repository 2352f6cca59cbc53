package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"go.viam.com/crowdsim/collision"
	"go.viam.com/crowdsim/config"
	"go.viam.com/crowdsim/simulation"
	"go.viam.com/crowdsim/utils"
	"go.viam.com/crowdsim/visualize"
)

func (s *session) runAction(c *cli.Context) error {
	ticks, dt := c.Int(flagTicks), c.Float64(flagDT)
	pngDir, pngEvery := c.Path(flagPNGDir), c.Int(flagPNGEvery)
	if pngDir != "" {
		if pngEvery < 1 {
			return errors.Errorf("--%s must be positive, got %d", flagPNGEvery, pngEvery)
		}
		if err := os.MkdirAll(pngDir, 0o750); err != nil {
			return err
		}
	}

	prog := s.progress(c)
	defer prog.Stop()
	if err := prog.Start(fmt.Sprintf("Placing %d objects", s.cfg.Objects)); err != nil {
		return err
	}
	sim, err := simulation.New(*s.cfg, s.logger)
	if err != nil {
		prog.Fail(err)
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()
	if err := prog.Start(fmt.Sprintf("Simulating %d ticks", ticks)); err != nil {
		return err
	}
	opts := visualize.DefaultRenderOptions()
	opts.Layer = c.Int(flagLayer)
	sum, err := sim.Run(ctx, ticks, dt, func(report simulation.TickReport) error {
		if report.Tick%10 == 0 {
			prog.Update(fmt.Sprintf("Simulating tick %d/%d", report.Tick, ticks))
		}
		if pngDir == "" || report.Tick%int64(pngEvery) != 0 {
			return nil
		}
		opts.Contacts = report.Collision.Objects()
		img, err := visualize.Render(sim.Snapshot(), opts)
		if err != nil {
			return err
		}
		return visualize.Save(img, filepath.Join(pngDir, fmt.Sprintf("frame-%05d.png", report.Tick)))
	})
	if err != nil {
		prog.Fail(err)
		return err
	}
	prog.Done(fmt.Sprintf("Simulated %d ticks", sum.Ticks))

	if path := c.Path(flagPlot); path != "" {
		series := visualize.Series{Name: sum.RunID, Durations: sim.StepDurations()}
		if err := visualize.SaveStepPlot(path, "step time", series); err != nil {
			return errors.Wrap(err, "cannot write plot")
		}
	}
	printf(c.App.Writer, "%s", summaryTable([]string{string(s.cfg.TreePolicy)}, []simulation.Summary{sum}))
	if c.Bool(flagHistogram) {
		if err := visualize.FprintHistogram(c.App.Writer, sim.StepDurations(), 10, 40); err != nil {
			return err
		}
	}
	if c.Bool(flagLayers) {
		printf(c.App.Writer, "%s", layerTable(sim.Snapshot()))
	}
	return nil
}

func (s *session) renderAction(c *cli.Context) error {
	out := c.Path(flagOut)
	sim, err := simulation.New(*s.cfg, s.logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	var last simulation.TickReport
	if _, err := sim.Run(ctx, c.Int(flagTicks), c.Float64(flagDT), func(report simulation.TickReport) error {
		last = report
		return nil
	}); err != nil {
		return err
	}

	opts := visualize.DefaultRenderOptions()
	opts.Width, opts.Height = c.Int(flagWidth), c.Int(flagHeight)
	opts.Layer = c.Int(flagLayer)
	opts.Labels = c.Bool(flagLabels)
	opts.Contacts = last.Collision.Objects()
	img, err := visualize.Render(sim.Snapshot(), opts)
	if err != nil {
		return err
	}
	if err := visualize.Save(img, out); err != nil {
		return err
	}
	if width := c.Int(flagThumbnail); width > 0 {
		ext := filepath.Ext(out)
		thumbPath := strings.TrimSuffix(out, ext) + "-thumb" + ext
		if err := visualize.Save(visualize.Thumbnail(img, width), thumbPath); err != nil {
			return err
		}
	}
	printf(c.App.Writer, "wrote %s at tick %d", out, sim.Ticks())
	return nil
}

func (s *session) viewAction(c *cli.Context) error {
	sim, err := simulation.New(*s.cfg, s.logger)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "cannot open terminal")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "cannot open terminal")
	}
	defer screen.Fini()
	return s.view(ctx, c, screen, sim)
}

// view runs the viewer on an initialized screen, with the config watcher and sound the flags ask
// for.
func (s *session) view(ctx context.Context, c *cli.Context, screen tcell.Screen, sim *simulation.Simulation) error {
	opts := visualize.ViewerOptions{
		DT:    c.Float64(flagDT),
		Layer: c.Int(flagLayer),
		Tree:  true,
	}

	if c.Bool(flagSound) {
		sound := visualize.NewHitSound()
		if err := sound.Open(); err != nil {
			// the viewer is still useful without sound
			s.logger.Warnw("sound disabled", "error", err)
		} else {
			defer sound.Close()
			opts.Sound = sound
		}
	}

	if c.Bool(flagWatch) {
		if s.cfg.ConfigFilePath == "" {
			warningf(c.App.ErrWriter, "--%s needs --%s, not watching", flagWatch, flagConfig)
		} else {
			configs := make(chan config.Config, 1)
			opts.Configs = configs
			watchers := utils.NewStoppableWorkers(ctx, func(ctx context.Context) error {
				return config.Watch(ctx, s.cfg.ConfigFilePath, s.logger, func(cfg *config.Config) {
					config.UpdateFileConfigDebug(cfg.Debug)
					select {
					case <-configs:
					default:
					}
					configs <- *cfg
				})
			})
			defer func() {
				watchers.Stop()
				if err := watchers.Wait(); err != nil {
					s.logger.Errorw("config watcher stopped", "error", err)
				}
			}()
		}
	}

	return visualize.NewViewer(screen, s.logger, opts).Run(ctx, sim)
}

type benchVariant struct {
	name       string
	broadPhase collision.BroadPhase
	policy     config.TreePolicy
}

var benchVariants = []benchVariant{
	{"tree/rebuild", collision.BroadPhaseTree, config.TreePolicyRebuild},
	{"tree/refit", collision.BroadPhaseTree, config.TreePolicyRefit},
	{"brute/rebuild", collision.BroadPhaseBrute, config.TreePolicyRebuild},
}

func (s *session) benchAction(c *cli.Context) error {
	ticks, dt := c.Int(flagTicks), c.Float64(flagDT)
	ctx, cancel := signalContext(c)
	defer cancel()

	prog := s.progress(c)
	defer prog.Stop()
	if err := prog.Start(fmt.Sprintf("Running %d variants for %d ticks", len(benchVariants), ticks)); err != nil {
		return err
	}

	sims := make([]*simulation.Simulation, len(benchVariants))
	sums := make([]simulation.Summary, len(benchVariants))
	g, ctx := errgroup.WithContext(ctx)
	for i, v := range benchVariants {
		cfg := *s.cfg
		cfg.Collision.BroadPhase = string(v.broadPhase)
		cfg.Collision.BroadPhaseThreshold = 0
		cfg.TreePolicy = v.policy
		sim, err := simulation.New(cfg, s.logger.Sublogger(v.name))
		if err != nil {
			prog.Fail(err)
			return err
		}
		sims[i] = sim
		g.Go(func() error {
			sum, err := sim.Run(ctx, ticks, dt, nil)
			sums[i] = sum
			return errors.Wrap(err, v.name)
		})
	}
	if err := g.Wait(); err != nil {
		prog.Fail(err)
		return err
	}
	prog.Done(fmt.Sprintf("Ran %d variants for %d ticks", len(benchVariants), ticks))

	names := make([]string, len(benchVariants))
	series := make([]visualize.Series, len(benchVariants))
	for i, v := range benchVariants {
		names[i] = v.name
		series[i] = visualize.Series{Name: v.name, Durations: sims[i].StepDurations()}
	}
	printf(c.App.Writer, "%s", summaryTable(names, sums))

	reference := sims[0].Snapshot().Objects
	for i := 1; i < len(sims); i++ {
		if diff := cmp.Diff(reference, sims[i].Snapshot().Objects); diff != "" {
			warningf(c.App.ErrWriter, "%s ended with a different crowd than %s:\n%s", names[i], names[0], diff)
		}
	}

	if c.Bool(flagHistogram) {
		for _, sr := range series {
			printf(c.App.Writer, "%s", sr.Name)
			if err := visualize.FprintHistogram(c.App.Writer, sr.Durations, 10, 40); err != nil {
				return err
			}
		}
	}
	if path := c.Path(flagPlot); path != "" {
		if err := visualize.SaveStepPlot(path, "step time by variant", series...); err != nil {
			return errors.Wrap(err, "cannot write plot")
		}
	}
	return nil
}

func (s *session) schemaAction(c *cli.Context) error {
	out, err := config.SchemaJSON()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
