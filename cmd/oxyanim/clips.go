package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newClipsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clips [model]",
		Short: "List the skins and animation clips of a glTF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := loadAsset(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "CLIP\tJOINTS\tKEYFRAMES\tDURATION\n")
			for _, rig := range asset.Rigs {
				if len(rig.Clips) == 0 {
					fmt.Fprintf(w, "%s/-\t%d\t0\t0.000s\n", rig.Name, rig.BindPose.Len())
				}
				for _, clip := range rig.Clips {
					fmt.Fprintf(w, "%s\t%d\t%d\t%.3fs\n", clipKey(rig, clip), rig.BindPose.Len(), len(clip.Keyframes), clip.Duration())
				}
			}
			return w.Flush()
		},
	}
}
