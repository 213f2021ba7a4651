package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bgmexport/internal/token"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the Bangumi access token",
	}

	tokenCmd.AddCommand(newTokenSetCommand(ctx))
	tokenCmd.AddCommand(newTokenClearCommand(ctx))
	tokenCmd.AddCommand(newTokenStatusCommand(ctx))

	return tokenCmd
}

func newTokenSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set [TOKEN]",
		Short: "Store the access token in the OS keyring (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.tokenOptions()
			if err != nil {
				return err
			}
			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "Access token: ")
				value, err = readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			if err := token.Store(opts, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored token %s in keyring service %q\n", token.Mask(strings.TrimSpace(value)), opts.KeyringService)
			return nil
		},
	}
}

func newTokenClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the access token from the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.tokenOptions()
			if err != nil {
				return err
			}
			if err := token.Delete(opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Keyring token removed")
			return nil
		},
	}
}

func newTokenStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which source provides the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.tokenOptions()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			value, source, err := token.Resolve(opts)
			if errors.Is(err, token.ErrNoToken) {
				fmt.Fprintln(out, "Token: not configured")
				fmt.Fprintf(out, "Checked: $%s, %s, keyring (%s)\n", token.EnvVar, opts.File, yesNo(opts.KeyringEnabled))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Token: %s\n", token.Mask(value))
			fmt.Fprintf(out, "Source: %s\n", source)
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no token provided")
	}
	return line, nil
}
