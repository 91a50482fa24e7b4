package main

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/bake_store"
	"github.com/Carmen-Shannon/oxy-anim/engine/library"
	"github.com/spf13/cobra"
)

func newBakeCmd(a *app) *cobra.Command {
	var clipFilter string
	cmd := &cobra.Command{
		Use:   "bake [model] [output.db]",
		Short: "Bake every clip of a glTF file into a SQLite bake store",
		Args:  cobra.ExactArgs(2),
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

			store, err := bake_store.Open(ctx, args[1])
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lib, err := a.newLibrary(refs, library.WithBakeStore(store))
			if err != nil {
				return err
			}
			defer lib.Close()

			start := time.Now()
			if err := lib.BakeAll(ctx, a.cfg.BakeFrames); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range lib.Names() {
				anim, _ := lib.Get(name)
				fmt.Fprintf(out, "%s: %d frames every %.4fs\n", name, len(anim.BakedFrames()), anim.Quantum())
			}
			fmt.Fprintf(out, "Baked %d clips into %s in %v.\n", lib.Len(), args[1], time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&clipFilter, "clip", "", "Bake only this clip (name or rig/clip)")
	return cmd
}
