package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/bake_store"
	"github.com/Carmen-Shannon/oxy-anim/engine/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/Carmen-Shannon/oxy-anim/engine/library"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
	"github.com/Carmen-Shannon/oxy-anim/engine/skinning"
	"github.com/spf13/cobra"
)

func newPlayCmd(a *app) *cobra.Command {
	var (
		clipFilter string
		seconds    float64
		baked      bool
		realtime   bool
	)
	cmd := &cobra.Command{
		Use:   "play [model]",
		Short: "Play clips on a simulated clock and stage their joint palettes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asset, err := loadAsset(args[0])
			if err != nil {
				return err
			}
			refs := selectClips(asset, clipFilter)
			if len(refs) == 0 {
				return fmt.Errorf("%s: no clips match %q", args[0], clipFilter)
			}

			mode, err := animation.ParseType(a.cfg.Type)
			if err != nil {
				return err
			}
			if baked {
				mode = animation.TypeBaked
			}

			var opts []library.LibraryBuilderOption
			if a.cfg.BakeStore != "" {
				store, err := bake_store.Open(ctx, a.cfg.BakeStore)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				opts = append(opts, library.WithBakeStore(store))
			}
			lib, err := a.newLibrary(refs, opts...)
			if err != nil {
				return err
			}
			defer lib.Close()

			if mode == animation.TypeBaked {
				if err := lib.BakeAll(ctx, a.cfg.BakeFrames); err != nil {
					return err
				}
			}

			palettes := make(map[string]skinning.Palette, len(refs))
			for _, ref := range refs {
				name := clipKey(ref.rig, ref.clip)
				anim, _ := lib.Get(name)
				anim.SetType(mode)
				palettes[name] = skinning.NewPalette(ref.rig.BindPose,
					skinning.WithLabel(name),
					skinning.WithJointOrder(ref.rig.Joints),
				)
			}

			if seconds <= 0 {
				for _, ref := range refs {
					seconds = max(seconds, ref.clip.Duration())
				}
			}
			dt := a.cfg.TickInterval()
			ticks := max(1, int(math.Ceil(seconds/dt)))

			profOpts := []profiler.ProfilerBuilderOption{profiler.WithInterval(a.cfg.ProfileInterval)}
			if a.cfg.ProfileInterval == 0 {
				profOpts = append(profOpts, profiler.WithQuiet())
			}

			var stageErr error
			staged := make(map[string]int, len(refs))
			writes := make([]bind_group_provider.BufferWrite, 0, len(refs))
			eng := engine.NewEngine(
				engine.WithLibrary(lib),
				engine.WithTickRate(float64(a.cfg.TickRate)),
				engine.WithProfiler(profiler.NewProfiler(profOpts...)),
				engine.WithProfiling(true),
			)
			eng.SetTickCallback(func(_, _ float64, outputs map[string]*joint.Pose) {
				writes = writes[:0]
				for name, pose := range outputs {
					p := palettes[name]
					p.Update(pose)
					before := len(writes)
					writes = p.Stage(writes)
					for _, w := range writes[before:] {
						if err := p.Provider().Validate(w); err != nil && stageErr == nil {
							stageErr = err
							eng.Quit()
						}
						staged[name] += len(w.Data)
					}
				}
			})

			if realtime {
				runCtx, cancel := context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
				defer cancel()
				if err := eng.Run(runCtx); err != nil {
					return err
				}
			} else {
				for range ticks + 1 {
					eng.Step(dt)
					if stageErr != nil {
						break
					}
				}
			}
			if stageErr != nil {
				return stageErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Played %d ticks (%.3fs at %d Hz, %s).\n", eng.Ticks(), eng.SystemTime(), a.cfg.TickRate, mode)
			for _, name := range lib.Names() {
				anim, _ := lib.Get(name)
				cur, next := anim.KeyframeIndices()
				fmt.Fprintf(out, "%s: keyframes (%d, %d) baked index %d, %d joints, staged %d bytes\n",
					name, cur, next, anim.BakedIndex(), palettes[name].JointCount(), staged[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clipFilter, "clip", "", "Play only this clip (name or rig/clip)")
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "Simulated seconds to play, 0 for the longest clip")
	cmd.Flags().BoolVar(&baked, "baked", false, "Bake the clips and play the baked frames")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Tick on the wall clock for the given seconds instead of simulating")
	return cmd
}
