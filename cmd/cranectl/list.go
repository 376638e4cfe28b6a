package main

import (
	"fmt"

	"github.com/spf13/cobra"

	crane "github.com/wagiedev/crane-service-go"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Ask the worker which models it knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			return crane.WithService(ctx, func(svc crane.Service) error {
				names, err := svc.ListModels(ctx)
				if err != nil {
					return err
				}

				for _, name := range names {
					fmt.Fprintln(a.out, name)
				}

				return nil
			}, a.options...)
		},
	}
}
