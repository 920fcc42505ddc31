package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"go.eggybyte.com/settings/settingx"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <group> <label>",
		Short: "Show one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			s, err := c.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), toRecord(s))
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var values bool
	cmd := &cobra.Command{
		Use:   "list [group]",
		Short: "List settings, optionally restricted to one group",
		Long: `List settings ordered by weight.

With --values and a group, print the group's label to value map as
served by the read view instead of full records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := ""
			if len(args) == 1 {
				group = args[0]
			}
			if values && group == "" {
				return fmt.Errorf("--values requires a group")
			}

			c, ctx, cancel, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if values {
				res, err := c.Group(ctx, group)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), res.Values)
			}
			list, err := c.List(ctx, group)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), toRecords(list))
		},
	}
	cmd.Flags().BoolVar(&values, "values", false, "Print the group's value map")
	return cmd
}

// setFlags are the flags of the set command.
type setFlags struct {
	typ    string
	weight int
	create bool
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	f := &setFlags{}
	cmd := &cobra.Command{
		Use:   "set <group> <label> <value>",
		Short: "Change a setting's value",
		Long: `Change a setting's value.

The value is parsed as YAML. With --type text or textarea the raw
argument is kept as a string. With --create the setting is created
when missing, and --type is required.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(settingx.Type(f.typ), args[2])
			if err != nil {
				return err
			}
			if f.create && f.typ == "" {
				return fmt.Errorf("--create requires --type")
			}

			c, ctx, cancel, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			var s *settingx.Setting
			if f.create {
				s, err = c.Create(ctx, &settingx.Setting{
					Group:  args[0],
					Label:  args[1],
					Type:   settingx.Type(f.typ),
					Value:  value,
					Weight: f.weight,
				}, true)
			} else {
				s, err = c.Update(ctx, args[0], args[1], buildUpdate(cmd, f, value))
			}
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), toRecord(s))
		},
	}
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "Setting type (text, textarea, multiple_text, checkbox, number)")
	cmd.Flags().IntVarP(&f.weight, "weight", "w", 0, "Ordering weight")
	cmd.Flags().BoolVar(&f.create, "create", false, "Create the setting when it does not exist")
	return cmd
}

// buildUpdate includes type and weight only when their flags were given.
func buildUpdate(cmd *cobra.Command, f *setFlags, value any) settingx.Update {
	u := settingx.Update{"value": value}
	if cmd.Flags().Changed("type") {
		u["type"] = f.typ
	}
	if cmd.Flags().Changed("weight") {
		u["weight"] = f.weight
	}
	return u
}

// parseValue decodes a command-line value as YAML. Text types keep the raw string.
func parseValue(t settingx.Type, raw string) (any, error) {
	if t == settingx.TypeText || t == settingx.TypeTextarea {
		return raw, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", raw, err)
	}
	if t == settingx.TypeMultipleText {
		if list, ok := v.([]any); ok {
			for i, item := range list {
				if _, isString := item.(string); !isString {
					list[i] = fmt.Sprint(item)
				}
			}
		}
	}
	return v, nil
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <group> <label>",
		Aliases: []string{"rm"},
		Short:   "Delete a setting",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			s, err := c.Delete(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), toRecord(s))
		},
	}
}
