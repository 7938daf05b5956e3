package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-memoize/cache"
	"github.com/goliatone/go-memoize/memoize"
	"github.com/goliatone/go-memoize/pkg/di"
)

var errNoEntry = errors.New("memoctl: no entry")

type callFlags struct {
	config   string
	funcName string
	args     string
	kwargs   string
}

func newRootCmd() *cobra.Command {
	flags := &callFlags{}

	rootCmd := &cobra.Command{
		Use:           "memoctl",
		Short:         "Inspect and edit memoized results in a configured store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file (default ./memoize.*)")
	rootCmd.PersistentFlags().StringVarP(&flags.funcName, "func", "f", "", "function name the entry belongs to")
	rootCmd.PersistentFlags().StringVar(&flags.args, "args", "[]", "positional arguments as a JSON array")
	rootCmd.PersistentFlags().StringVar(&flags.kwargs, "kwargs", "{}", "keyword arguments as a JSON object")
	_ = rootCmd.MarkPersistentFlagRequired("func")

	rootCmd.AddCommand(
		newKeyCmd(flags),
		newGetCmd(flags),
		newPutCmd(flags),
		newDeleteCmd(flags),
	)
	return rootCmd
}

func newKeyCmd(flags *callFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "key",
		Short: "Print the key derived for a call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyData, err := flags.keyData()
			if err != nil {
				return err
			}
			key, err := cache.DeriveKey(flags.funcName, keyData)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newGetCmd(flags *callFlags) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the stored result of a call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyData, err := flags.keyData()
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), flags.config, func(c *di.Container) error {
				entry, err := c.Storage().Get(cmd.Context(), flags.funcName, keyData, ttl)
				if err != nil {
					return err
				}
				if entry == nil {
					return errNoEntry
				}
				out := struct {
					Key       string          `json:"key"`
					CreatedAt time.Time       `json:"created_at"`
					Data      json.RawMessage `json:"data"`
				}{entry.Key, entry.CreatedAt, entry.Data}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "treat entries older than this as missing (0 disables)")
	return cmd
}

func newPutCmd(flags *callFlags) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a JSON value as the result of a call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyData, err := flags.keyData()
			if err != nil {
				return err
			}
			if !json.Valid([]byte(value)) {
				return fmt.Errorf("--value is not valid JSON: %s", value)
			}
			return withContainer(cmd.Context(), flags.config, func(c *di.Container) error {
				return c.Storage().Put(cmd.Context(), flags.funcName, keyData, json.RawMessage(value))
			})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "result as JSON")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newDeleteCmd(flags *callFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored result of a call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyData, err := flags.keyData()
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), flags.config, func(c *di.Container) error {
				return c.Storage().Delete(cmd.Context(), flags.funcName, keyData)
			})
		},
	}
}

// keyData builds the [positional, keyword] pair the memoize package stores
// calls under.
func (f *callFlags) keyData() (any, error) {
	var args memoize.Args
	if err := decodeJSON(f.args, &args.Positional); err != nil {
		return nil, fmt.Errorf("--args: %w", err)
	}
	if err := decodeJSON(f.kwargs, &args.Keyword); err != nil {
		return nil, fmt.Errorf("--kwargs: %w", err)
	}
	return args.KeyData(), nil
}

func decodeJSON(s string, dest any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	return dec.Decode(dest)
}

func withContainer(ctx context.Context, path string, fn func(*di.Container) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := di.LoadConfig(path)
	if err != nil {
		return err
	}
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()
	return fn(container)
}
