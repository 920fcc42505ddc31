package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/settingx"
)

// seedResult summarizes a seed run.
type seedResult struct {
	Created     []string `json:"created" yaml:"created"`
	Overwritten []string `json:"overwritten,omitempty" yaml:"overwritten,omitempty"`
	Skipped     []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "seed <defaults.yaml>",
		Short: "Create the settings of a defaults file on the server",
		Long: `Create the settings of a defaults file on the server.

Existing settings are left untouched unless --overwrite is given, in
which case they are replaced through an upsert.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := settingx.LoadDefaultsFile(args[0])
			if err != nil {
				return err
			}

			c, ctx, cancel, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			res := seedResult{Created: []string{}}
			for _, s := range defaults {
				if overwrite {
					if _, err := c.Create(ctx, s, true); err != nil {
						return fmt.Errorf("seed %s: %w", s.Key(), err)
					}
					res.Overwritten = append(res.Overwritten, s.Key())
					continue
				}
				_, err := c.Create(ctx, s, false)
				switch {
				case err == nil:
					res.Created = append(res.Created, s.Key())
				case errors.IsCode(err, errors.CodeAlreadyExists):
					res.Skipped = append(res.Skipped, s.Key())
				default:
					return fmt.Errorf("seed %s: %w", s.Key(), err)
				}
			}
			return opts.print(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace settings that already exist")
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <defaults.yaml>",
		Short: "Check a defaults file without contacting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := settingx.LoadDefaultsFile(args[0])
			if err != nil {
				return err
			}
			groups := map[string]int{}
			for _, s := range defaults {
				groups[s.Group]++
			}
			return opts.print(cmd.OutOrStdout(), map[string]any{
				"file":     args[0],
				"settings": len(defaults),
				"groups":   groups,
			})
		},
	}
}
