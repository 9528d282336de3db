package command

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// TemplatesCommand lists the predefined reports.
func TemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List predefined report templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := core.DefaultTemplates()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tENTITY\tFORMAT\tDESCRIPTION")
			fmt.Fprintln(w, "--\t-----\t------\t------\t-----------")
			for _, t := range catalog.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Label, t.Config.EntityType, t.Config.Format, t.Description)
			}
			return w.Flush()
		},
	}
}

// EntitiesCommand lists entity types, or the columns of one.
func EntitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entities [entity]",
		Short: "List exportable entity types or the columns of one type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			if len(args) == 0 {
				fmt.Fprintln(w, "TYPE\tLABEL\tCOLUMNS\tDATE FIELD")
				fmt.Fprintln(w, "----\t-----\t-------\t----------")
				for _, d := range core.Entities() {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.Type, d.Label, len(d.Columns), d.TimestampField)
				}
				return w.Flush()
			}

			def, ok := core.Lookup(core.EntityType(args[0]))
			if !ok {
				return fmt.Errorf("unknown entity type %q", args[0])
			}
			fmt.Fprintln(w, "ID\tLABEL\tTYPE\tREQUIRED")
			fmt.Fprintln(w, "--\t-----\t----\t--------")
			for _, c := range def.Columns {
				required := ""
				if c.Required {
					required = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Label, c.Type, required)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if def.Adapter != nil && len(def.Adapter.Derived()) > 0 {
				names := make([]string, 0, len(def.Adapter.Derived()))
				for _, d := range def.Adapter.Derived() {
					names = append(names, d.Column.ID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nDerived in Excel and PDF exports: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
