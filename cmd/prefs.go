package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"workbench/internal/config"
	"workbench/internal/preferences"
)

func newPrefsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and change stored preferences",
		Long: `Reads and writes the preference database used by 'workbench run'.

The only preference workbench itself consults is ` + preferences.PromptWhenStillOpen + `:
when false, closing a part no longer asks about documents that stay open in
another part.`,
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "Preference database (defaults to the configured path)")

	open := func() (*preferences.BoltStore, error) {
		path := file
		if path == "" {
			cfg, err := config.LoadConfig()
			if err != nil {
				return nil, err
			}
			path = cfg.Preferences.Path
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return preferences.OpenBolt(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			v, err := store.Get(args[0])
			if errors.Is(err, preferences.ErrNoValue) {
				return fmt.Errorf("%s is not set", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			if args[0] == preferences.PromptWhenStillOpen {
				b, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("%s takes true or false: %w", args[0], err)
				}
				return preferences.SetBool(store, args[0], b)
			}
			return store.Set(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <key>",
		Short: "Remove a stored preference so the default applies again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			keys, err := store.Keys()
			if err != nil {
				return err
			}
			for _, k := range keys {
				v, err := store.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, v)
			}
			return nil
		},
	})
	return cmd
}
