package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/debug_draw"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		clipFilter    string
		at            float64
		width, height int
		labels        bool
	)
	cmd := &cobra.Command{
		Use:   "snapshot [model] [output.png]",
		Short: "Render a clip's pose at a point in time as a PNG stick figure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := loadAsset(args[0])
			if err != nil {
				return err
			}

			var pose *joint.Pose
			desc := ""
			if refs := selectClips(asset, clipFilter); len(refs) > 0 {
				ref := refs[0]
				anim := ref.rig.NewAnimation(ref.clip, animation.WithSpeed(a.cfg.Speed))
				// The keyframe pair advances one step per tick, so the clock is stepped at the
				// tick rate rather than jumping straight to the requested time.
				dt := a.cfg.TickInterval()
				for t := 0.0; ; t += dt {
					pose = anim.Update(min(t, at), dt)
					if t >= at {
						break
					}
				}
				desc = fmt.Sprintf("%s at %.3fs", clipKey(ref.rig, ref.clip), at)
			} else if clipFilter == "" {
				rig := asset.Rigs[0]
				pose = rig.BindPose.Clone()
				pose.Resolve()
				desc = rig.Name + " bind pose"
			} else {
				return fmt.Errorf("%s: no clips match %q", args[0], clipFilter)
			}

			d := debug_draw.NewDrawer(debug_draw.WithSize(width, height), debug_draw.WithLabels(labels))
			if err := d.Save(args[1], pose); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s).\n", args[1], desc)
			return nil
		},
	}
	cmd.Flags().StringVar(&clipFilter, "clip", "", "Clip to render (name or rig/clip), default the first")
	cmd.Flags().Float64Var(&at, "time", 0, "Clip time in seconds")
	cmd.Flags().IntVar(&width, "width", 512, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", 512, "Image height in pixels")
	cmd.Flags().BoolVar(&labels, "labels", true, "Draw joint names")
	return cmd
}
