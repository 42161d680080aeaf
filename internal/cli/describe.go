package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/schema"
)

// ModelDescription is the resolved view of one model.
type ModelDescription struct {
	Name       string                `json:"name"`
	Chain      []string              `json:"chain"`
	Datasource string                `json:"datasource"`
	Table      string                `json:"table"`
	PrimaryKey string                `json:"primary_key"`
	Properties []PropertyDescription `json:"properties"`
	Relations  []RelationDescription `json:"relations,omitempty"`
}

// PropertyDescription describes one flattened property.
type PropertyDescription struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Column    string `json:"column"`
	ID        bool   `json:"id,omitempty"`
	Required  bool   `json:"required,omitempty"`
	Unique    string `json:"unique,omitempty"`
	Default   string `json:"default,omitempty"`
	DefaultFn string `json:"default_fn,omitempty"`
}

// RelationDescription describes one flattened relation.
type RelationDescription struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	Targets       []string `json:"targets"`
	ForeignKey    string   `json:"foreign_key"`
	Discriminator string   `json:"discriminator,omitempty"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <models-dir> <model>",
		Short: "Show a model resolved across its base chain",
		Long: `Show a model as queries see it: inherited properties and relations
merged in, columns and primary key resolved, conventional foreign keys
filled in.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDescribe(opts *RootOptions, modelsDir, model string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	_, resolver, err := loadModels(modelsDir)
	if err != nil {
		_ = formatter.Error(errorCode(err, ErrCodeGeneric), err.Error(), nil)
		return err
	}

	meta, err := resolver.Resolve(model)
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeGeneric, "describe failed", err)
	}
	desc := describe(meta)

	if formatter.Format == "json" {
		return formatter.Success(desc)
	}
	writeDescription(formatter, desc)
	return nil
}

func describe(meta *schema.Resolved) ModelDescription {
	desc := ModelDescription{
		Name:       meta.Name,
		Chain:      meta.Chain,
		Datasource: meta.Datasource,
		Table:      meta.Table,
		PrimaryKey: meta.PrimaryKey,
	}
	if desc.Datasource == "" {
		desc.Datasource = adapter.DefaultDatasource
	}

	for _, name := range sortedNames(meta.Properties) {
		p := meta.Properties[name]
		pd := PropertyDescription{
			Name:      name,
			Type:      string(p.Type),
			Column:    p.Column,
			ID:        p.ID,
			Required:  p.Required,
			Unique:    string(p.Unique),
			DefaultFn: p.DefaultFn,
		}
		if p.ItemType != "" {
			pd.Type = fmt.Sprintf("%s<%s>", p.Type, p.ItemType)
		}
		if p.Default != nil {
			if data, err := ir.MarshalCanonical(p.Default); err == nil {
				pd.Default = string(data)
			}
		}
		desc.Properties = append(desc.Properties, pd)
	}

	for _, name := range sortedNames(meta.Relations) {
		r := meta.Relations[name]
		rd := RelationDescription{
			Name:       name,
			Kind:       string(r.Kind),
			ForeignKey: r.ForeignKey,
		}
		switch {
		case r.Polymorphic != nil:
			rd.Discriminator = r.Polymorphic.Discriminator
			rd.Targets = r.Polymorphic.Targets
			if len(rd.Targets) == 0 {
				rd.Targets = []string{"*"}
			}
		default:
			rd.Targets = []string{r.Target}
		}
		desc.Relations = append(desc.Relations, rd)
	}
	return desc
}

func writeDescription(f *OutputFormatter, d ModelDescription) {
	w := f.Writer
	fmt.Fprintf(w, "Model: %s\n", d.Name)
	if len(d.Chain) > 1 {
		fmt.Fprintf(w, "Chain: %s\n", strings.Join(d.Chain, " -> "))
	}
	fmt.Fprintf(w, "Datasource: %s\n", d.Datasource)
	fmt.Fprintf(w, "Table: %s\n", d.Table)
	fmt.Fprintf(w, "Primary key: %s\n", d.PrimaryKey)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Properties:")
	for _, p := range d.Properties {
		var flags []string
		if p.ID {
			flags = append(flags, "id")
		}
		if p.Required {
			flags = append(flags, "required")
		}
		if p.Unique != "" {
			flags = append(flags, "unique="+p.Unique)
		}
		if p.Column != p.Name {
			flags = append(flags, "column="+p.Column)
		}
		if p.Default != "" {
			flags = append(flags, "default="+p.Default)
		}
		if p.DefaultFn != "" {
			flags = append(flags, "defaultFn="+p.DefaultFn)
		}
		line := fmt.Sprintf("  %s: %s", p.Name, p.Type)
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}

	if len(d.Relations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Relations:")
	for _, r := range d.Relations {
		line := fmt.Sprintf("  %s: %s %s via %s", r.Name, r.Kind, strings.Join(r.Targets, "|"), r.ForeignKey)
		if r.Discriminator != "" {
			line += fmt.Sprintf(" (discriminator %s)", r.Discriminator)
		}
		fmt.Fprintln(w, line)
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
