package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/service-annotations/framework/app"
	"github.com/km-arc/service-annotations/framework/container"
)

// report is what scan prints.
type report struct {
	Environment string          `json:"environment" yaml:"environment"`
	Pass        string          `json:"pass" yaml:"pass"`
	Candidates  int             `json:"candidates" yaml:"candidates"`
	Services    []serviceReport `json:"services" yaml:"services"`
}

type serviceReport struct {
	ID          string      `json:"id" yaml:"id"`
	Class       string      `json:"class" yaml:"class"`
	Public      bool        `json:"public" yaml:"public"`
	Lazy        bool        `json:"lazy" yaml:"lazy"`
	Abstract    bool        `json:"abstract" yaml:"abstract"`
	Arguments   any         `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Tags        []tagReport `json:"tags,omitempty" yaml:"tags,omitempty"`
	MethodCalls any         `json:"methodCalls,omitempty" yaml:"methodCalls,omitempty"`
	Factory     any         `json:"factory,omitempty" yaml:"factory,omitempty"`
	Decorates   string      `json:"decorates,omitempty" yaml:"decorates,omitempty"`
}

type tagReport struct {
	Name       string         `json:"name" yaml:"name"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

func newScanCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one discovery pass and print the registered services",
		Long: `Run one discovery pass and print the registered services in priority order.

Examples:
  service-annotations scan
  service-annotations scan --env prod --format yaml
  service-annotations scan -f json | jq '.services[].id'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			render, err := renderer(format)
			if err != nil {
				return err
			}

			a, _, err := opts.boot(cmd)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), buildReport(a))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text | json | yaml")
	return cmd
}

func buildReport(a *app.Application) report {
	sum := a.Summary()
	b := a.Builder()

	r := report{
		Environment: a.Environment(),
		Pass:        sum.PassID,
		Candidates:  sum.Candidates,
		Services:    []serviceReport{},
	}

	// The same id may have been registered twice; the builder holds the last.
	seen := make(map[string]bool, len(sum.Registered))
	for _, id := range sum.Registered {
		if seen[id] {
			continue
		}
		seen[id] = true

		def, ok := b.Definition(id)
		if !ok {
			continue
		}
		s := serviceReport{
			ID:          id,
			Class:       def.Class,
			Public:      def.Public,
			Lazy:        def.Lazy,
			Abstract:    def.Abstract,
			Arguments:   display(def.Arguments),
			MethodCalls: display(def.MethodCalls),
			Factory:     display(def.Factory),
			Decorates:   def.Decorates,
		}
		for _, t := range def.Tags {
			s.Tags = append(s.Tags, tagReport{Name: t.Name, Attributes: t.Attributes})
		}
		r.Services = append(r.Services, s)
	}
	return r
}

// display turns placeholders back into their string form so every output
// format shows them the way they were written.
func display(v any) any {
	switch t := v.(type) {
	case container.Reference:
		return "@" + t.ID
	case container.TaggedIterator:
		return t.String()
	case []any:
		if len(t) == 0 {
			return nil
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = display(e)
		}
		return out
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = display(e)
		}
		return out
	default:
		return v
	}
}

func renderer(format string) (func(io.Writer, report) error, error) {
	switch strings.ToLower(format) {
	case "text", "":
		return renderText, nil
	case "json":
		return renderJSON, nil
	case "yaml", "yml":
		return renderYAML, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func renderText(w io.Writer, r report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tPUBLIC\tTAGS")
	for _, s := range r.Services {
		names := make([]string, len(s.Tags))
		for i, t := range s.Tags {
			names[i] = t.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", s.ID, s.Class, s.Public, strings.Join(names, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d services registered for env %q (%d candidates)\n", len(r.Services), r.Environment, r.Candidates)
	return err
}

func renderJSON(w io.Writer, r report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

func renderYAML(w io.Writer, r report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
