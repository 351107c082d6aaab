package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/multisock/resolve"
)

func newResolveCommand(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resolve HOST [SERVICE]",
		Short: "Print the candidates ConnectByName would try, in order",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := ""
			if len(args) > 1 {
				service = args[1]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runResolve(ctx, a, cmd, args[0], service)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "resolution timeout")
	return cmd
}

func runResolve(ctx context.Context, a *app, cmd *cobra.Command, node, service string) error {
	attr, err := a.cfg.Attr()
	if err != nil {
		return err
	}
	r, err := a.cfg.NewResolver()
	if err != nil {
		return err
	}

	cands, err := r.Resolve(ctx, node, service, resolve.Hints{
		SocketType: attr.SocketType,
		Protocol:   attr.Protocol,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, render(titleStyle, node))
	for i, c := range cands {
		fmt.Fprintf(out, "%3d  %-5s  %s  %s/%s\n",
			i+1,
			render(familyStyle, c.Family().String()),
			render(addrStyle, c.Address.String()),
			c.SocketType, c.Protocol)
	}
	return nil
}
