// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"touchflow.org/config"
	"touchflow.org/internal/logging"
)

type options struct {
	configPath string
	verbose    bool
	jobs       int
}

func newRootCmd() *cobra.Command {
	opts := new(options)
	root := &cobra.Command{
		Use:   "gesturereplay",
		Short: "Replay recorded pointer streams through the gesture orchestrator",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "recognizer configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log arbitration decisions")
	root.AddCommand(newRunCmd(opts), newDefaultsCmd())
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.toml>...",
		Short: "Replay scenarios and print the handler state changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if opts.verbose {
				level = "debug"
			}
			log, err := logging.New(level, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			// Scenarios replay independently; output keeps argument order.
			outs := make([]bytes.Buffer, len(args))
			var g errgroup.Group
			if opts.jobs > 0 {
				g.SetLimit(opts.jobs)
			}
			for i, path := range args {
				g.Go(func() error {
					sc, err := loadScenario(path)
					if err != nil {
						return err
					}
					trace, err := replay(sc, cfg, log.WithField("scenario", filepath.Base(path)))
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					return printTrace(&outs[i], path, trace)
				})
			}
			err = g.Wait()
			for i := range outs {
				if _, werr := outs[i].WriteTo(cmd.OutOrStdout()); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 0, "maximum number of scenarios replayed at once")
	return cmd
}

func newDefaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the built in configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Write(cmd.OutOrStdout(), config.Default())
		},
	}
}

func (o *options) config() (config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}
