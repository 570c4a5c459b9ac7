package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/viant/afs"
	"github.com/viant/oomadj"
	"github.com/viant/oomadj/scenario"
	"github.com/viant/oomadj/service/snapshot"
)

const (
	keyConfig   = "config"
	keyLogLevel = "log.level"
	keyStore    = "store"

	defaultStore = "mem://localhost/oomadj/dumps"
)

// newRootCmd builds the command tree. Settings come from flags, then
// OOMADJ_* environment variables (OOMADJ_CONFIG, OOMADJ_LOG_LEVEL,
// OOMADJ_STORE).
func newRootCmd(out io.Writer) *cobra.Command {
	settings := viper.New()
	settings.SetEnvPrefix("oomadj")
	settings.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	settings.AutomaticEnv()
	settings.SetDefault(keyStore, defaultStore)

	rootCmd := &cobra.Command{
		Use:           "oomadj",
		Short:         "Replay process graph scenarios through the importance engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "engine config URL (yaml or json)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String(keyStore, defaultStore, "afs URL where dumps are kept")
	_ = settings.BindPFlag(keyConfig, flags.Lookup(keyConfig))
	_ = settings.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = settings.BindPFlag(keyStore, flags.Lookup(keyStore))

	rootCmd.AddCommand(newDumpCmd(settings), newDiffCmd(settings))
	return rootCmd
}

func newDumpCmd(settings *viper.Viper) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "dump <scenario>",
		Short: "Run a scenario and print the resulting state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			srv, err := build(ctx, settings, args[0])
			if err != nil {
				return err
			}
			defer srv.Close()
			srv.Dump(cmd.OutOrStdout())
			if save == "" {
				return nil
			}
			URL, err := srv.SaveDump(ctx, newStore(settings), save)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %v\n", URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "also store the dump under this name")
	return cmd
}

func newDiffCmd(settings *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Compare the state produced by two scenarios",
		Long: `Each argument is a scenario URL, or a stored dump name prefixed
with "dump:" (see dump --save).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := newStore(settings)
			names := make([]string, len(args))
			for i, arg := range args {
				name, err := prepare(ctx, settings, store, arg, i)
				if err != nil {
					return err
				}
				names[i] = name
			}
			diff, err := store.Diff(ctx, names[0], names[1])
			if err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(diff)
			}
			if diff.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff.Text)
			fmt.Fprintf(cmd.OutOrStdout(), "%d hunk(s), +%d -%d\n", diff.Stats.Hunks, diff.Stats.Added, diff.Stats.Removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the structured diff")
	return cmd
}

// prepare returns the dump name for arg, running and storing the scenario
// when arg is not a stored dump.
func prepare(ctx context.Context, settings *viper.Viper, store *snapshot.Store, arg string, index int) (string, error) {
	if name, ok := strings.CutPrefix(arg, "dump:"); ok {
		return name, nil
	}
	srv, err := build(ctx, settings, arg)
	if err != nil {
		return "", err
	}
	defer srv.Close()
	name := fmt.Sprintf("diff-%d", index)
	if _, err = srv.SaveDump(ctx, store, name); err != nil {
		return "", err
	}
	return name, nil
}

func build(ctx context.Context, settings *viper.Viper, URL string) (*oomadj.Service, error) {
	cfg, err := loadConfig(ctx, settings)
	if err != nil {
		return nil, err
	}
	s, err := scenario.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	srv, err := oomadj.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err = s.Apply(srv); err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

func loadConfig(ctx context.Context, settings *viper.Viper) (*oomadj.Config, error) {
	cfg := oomadj.DefaultConfig()
	if URL := settings.GetString(keyConfig); URL != "" {
		loaded, err := oomadj.LoadConfig(ctx, URL)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if level := settings.GetString(keyLogLevel); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}

func newStore(settings *viper.Viper) *snapshot.Store {
	return snapshot.New(afs.New(), settings.GetString(keyStore))
}
