package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dropctl/dropctl/internal/dropctx"
	"github.com/dropctl/dropctl/internal/store"
)

// newSecretCmd wires get/set/del onto a parent command, grounded on the
// original's SecretCommand action dispatch (cmd/commands/secret.rs).
func newSecretCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Get, set, or delete secrets scoped to the active environment",
	}
	cmd.AddCommand(newSecretGetCmd(root))
	cmd.AddCommand(newSecretSetCmd(root))
	cmd.AddCommand(newSecretDelCmd(root))
	return cmd
}

func newSecretGetCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "List secrets for the active environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContext(root, func(ctx *dropctx.Context) error {
				secrets, err := ctx.Store.ListSecrets(root.env)
				if err != nil {
					return err
				}
				renderSecretTable(cmd.OutOrStdout(), secrets)
				return nil
			})
		},
	}
}

// renderSecretTable dumps every secret for the active environment as a
// key/value/env table, the same tablewriter dependency the assertion
// report uses (SPEC_FULL.md §D.2).
func renderSecretTable(w io.Writer, secrets []store.Secret) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Value", "Env"})
	for _, s := range secrets {
		table.Append([]string{s.Key, s.Value, s.Env})
	}
	table.Render()
}

func newSecretSetCmd(root *rootFlags) *cobra.Command {
	var key, value string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a secret in the active environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" || value == "" {
				return fmt.Errorf("both --key and --value are required")
			}
			return withContext(root, func(ctx *dropctx.Context) error {
				confirmed, err := confirmSecretSet(cmd.OutOrStdout(), root.env, key, value)
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
				return ctx.Store.SetSecret(key, value, root.env, true)
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Secret key")
	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	return cmd
}

func newSecretDelCmd(root *rootFlags) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "del",
		Short: "Delete a secret from the active environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return fmt.Errorf("--key is required")
			}
			return withContext(root, func(ctx *dropctx.Context) error {
				return ctx.Store.DeleteSecret(key, root.env)
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Secret key")
	return cmd
}

// confirmSecretSet prints the pending secret and waits for a single y/Y
// keypress, putting stdin into raw mode when it's a real terminal so the
// keypress isn't echoed back (SPEC_FULL.md §B: "mirroring how the teacher's
// TUI layer uses x/term to probe terminal capabilities"). Falls back to a
// plain buffered line read when stdin isn't a terminal (tests, pipes).
func confirmSecretSet(out io.Writer, env, key, value string) (bool, error) {
	fmt.Fprintf(out, "Please confirm setting secret:\n\nenvironment %s\nkey %s\nvalue %s\n\n'Y' or 'y' to proceed, any other key to cancel.\n", env, key, value)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		return line == "y\n" || line == "Y\n", nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return false, err
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return false, err
	}
	return buf[0] == 'y' || buf[0] == 'Y', nil
}
