package main

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/library"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/spf13/cobra"
)

// app carries the resolved configuration to every subcommand.
type app struct {
	cfg config.Config

	frames   int
	speed    float64
	workers  int
	tickRate int
	store    string
	interval time.Duration
	modeName string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "oxyanim",
		Short:         "Inspect, bake and play back glTF skeletal animations",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.IntVar(&a.frames, "frames", 0, "Frames per baked clip (env OXY_ANIM_BAKE_FRAMES)")
	flags.Float64Var(&a.speed, "speed", 0, "Playback speed multiplier (env OXY_ANIM_SPEED)")
	flags.IntVar(&a.workers, "workers", 0, "Worker pool size, 0 for CPU count - 1 (env OXY_ANIM_WORKERS)")
	flags.IntVar(&a.tickRate, "tick-rate", 0, "Simulated ticks per second (env OXY_ANIM_TICK_RATE)")
	flags.StringVar(&a.store, "store", "", "SQLite bake store path (env OXY_ANIM_BAKE_STORE)")
	flags.DurationVar(&a.interval, "profile-interval", 0, "Profiler report interval (env OXY_ANIM_PROFILE_INTERVAL)")
	flags.StringVar(&a.modeName, "type", "", "Playback type, interpolated or baked (env OXY_ANIM_TYPE)")

	root.AddCommand(
		newClipsCmd(a),
		newBakeCmd(a),
		newPlayCmd(a),
		newSnapshotCmd(a),
	)
	return root
}

// loadConfig reads the environment and lets explicitly set flags override it.
func (a *app) loadConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()
	var opts []config.ConfigBuilderOption
	if flags.Changed("frames") {
		opts = append(opts, config.WithBakeFrames(a.frames))
	}
	if flags.Changed("speed") {
		opts = append(opts, config.WithSpeed(a.speed))
	}
	if flags.Changed("workers") {
		opts = append(opts, config.WithWorkers(a.workers))
	}
	if flags.Changed("tick-rate") {
		opts = append(opts, config.WithTickRate(a.tickRate))
	}
	if flags.Changed("store") {
		opts = append(opts, config.WithBakeStore(a.store))
	}
	if flags.Changed("profile-interval") {
		opts = append(opts, config.WithProfileInterval(a.interval))
	}
	if flags.Changed("type") {
		opts = append(opts, config.WithType(a.modeName))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// loadAsset imports a glTF file and requires at least one rig.
func loadAsset(path string) (*loader.Asset, error) {
	asset, err := loader.NewLoader(loader.BackendTypeGLTF).Load(path)
	if err != nil {
		return nil, err
	}
	if len(asset.Rigs) == 0 {
		return nil, fmt.Errorf("%s: no skins found", path)
	}
	return asset, nil
}

// clipKey names a clip uniquely across the rigs of an asset.
func clipKey(rig *loader.Rig, clip *loader.Clip) string {
	return rig.Name + "/" + clip.Name
}

// selectClips returns the clips matching filter, which is empty for all, a clip name, or a
// rig/clip key.
func selectClips(asset *loader.Asset, filter string) []clipRef {
	var out []clipRef
	for _, rig := range asset.Rigs {
		for _, clip := range rig.Clips {
			if filter == "" || filter == clip.Name || filter == clipKey(rig, clip) {
				out = append(out, clipRef{rig: rig, clip: clip})
			}
		}
	}
	return out
}

type clipRef struct {
	rig  *loader.Rig
	clip *loader.Clip
}

// newLibrary builds a library holding one animation per clip, configured from a.cfg.
func (a *app) newLibrary(refs []clipRef, options ...library.LibraryBuilderOption) (library.Library, error) {
	lib := library.NewLibrary(append([]library.LibraryBuilderOption{library.WithWorkers(a.cfg.WorkerCount())}, options...)...)
	for _, ref := range refs {
		anim := ref.rig.NewAnimation(ref.clip,
			animation.WithName(clipKey(ref.rig, ref.clip)),
			animation.WithSpeed(a.cfg.Speed),
		)
		if err := lib.Add(anim); err != nil {
			lib.Close()
			return nil, err
		}
	}
	return lib, nil
}
