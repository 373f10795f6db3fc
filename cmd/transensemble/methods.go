package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
	"github.com/Antonio-Ardigo/Remote-Project/internal/report"
)

func newMethodsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the configured translation methods and whether they can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			bindings, err := a.cfg.MethodConfigs()
			if err != nil {
				return err
			}
			methods := rt.Engine.Methods()
			statuses := make([]report.MethodStatus, 0, len(methods))
			for _, m := range methods {
				b := bindings[m]
				s := report.MethodStatus{
					Method:   m,
					Priority: m.Priority() + 1,
					Backend:  b.Backend,
					Model:    b.Model,
					Ready:    true,
				}
				if err, ok := rt.Unavailable[m]; ok {
					s.Ready = false
					s.Reason = err.Error()
					if errors.Is(err, ports.ErrMissingCredential) {
						s.Reason = "missing credential"
					}
				}
				statuses = append(statuses, s)
			}

			r, out, err := a.renderer(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer out.Close()
			return r.Methods(statuses)
		},
	}
}
