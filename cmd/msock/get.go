package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/multisock"
)

func newGetCommand(a *app) *cobra.Command {
	var (
		path    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get HOST [SERVICE]",
		Short: "Send an HTTP/1.0 GET over the first reachable address and print the response",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service := "http"
			if len(args) > 1 {
				service = args[1]
			}
			return runGet(cmd.Context(), a, cmd.OutOrStdout(), args[0], service, path, timeout)
		},
	}
	cmd.Flags().StringVar(&path, "path", "/", "request path")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall request timeout")
	return cmd
}

func runGet(ctx context.Context, a *app, out io.Writer, host, service, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	a.serveMetrics(ctx)

	g, err := a.newGroup()
	if err != nil {
		return err
	}
	defer g.Close()

	fd, err := g.ConnectByName(ctx, host, service)
	if err != nil {
		return err
	}
	conn, err := multisock.FileConn(fd)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	a.log.Debug("connected", zap.Stringer("remote", conn.RemoteAddr()))

	if _, err := fmt.Fprintf(conn, "GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", path, host); err != nil {
		return err
	}
	_, err = io.Copy(out, conn)
	return err
}
