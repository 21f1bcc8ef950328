package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/goliatone/go-intake/flow"
)

type GraphCmd struct {
	Field string `help:"Only print this field." placeholder:"FIELD"`
}

func (c GraphCmd) Run(rt *runtime) error {
	resolver := flow.NewResolver(flow.DefaultDependencyGraph(), flow.NewClosureCache())

	fields := flow.Fields()
	if c.Field != "" {
		f, err := flow.ParseField(c.Field)
		if err != nil {
			return err
		}
		fields = []flow.Field{f}
	}

	tw := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tDEPENDS ON\tINVALIDATES")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			f,
			orDash(resolver.Graph().DependsOn(f)),
			orDash(resolver.Closure(f)),
		)
	}
	return tw.Flush()
}

func orDash(set flow.FieldSet) string {
	if set.Empty() {
		return "-"
	}
	return set.String()
}
