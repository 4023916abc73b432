package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/config"
	"github.com/hupe1980/roundtable/logging"
)

// rootOptions holds the persistent flags shared by all subcommands.
type rootOptions struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "roundtable",
		Short: "Roundtable runs multi-agent conferences",
		Long: `Roundtable lets several language model agents and a shared tool kit
collaborate on one conversation until an agent declares the final answer.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "conference.yaml", "Path to the conference file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", nil, "Env files to load before parsing (default .env.local,.env)")

	cmd.AddCommand(
		newRunCmd(opts),
		newGraphCmd(opts),
		newValidateCmd(opts),
	)
	return cmd
}

// load reads the env files and the conference file.
func (o *rootOptions) load() (*config.Config, error) {
	if err := config.LoadEnvFiles(o.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conference %s:\n%w", o.configPath, err)
	}
	return cfg, nil
}

// build loads and builds the conference with the builtin tools.
func (o *rootOptions) build(optFns ...func(*roundtable.Options)) (*config.Config, *roundtable.Conference, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(lc).WithComponent("cli")

	fns := append([]func(*roundtable.Options){func(ro *roundtable.Options) { ro.Logger = logger }}, optFns...)
	conf, err := cfg.NewConference(builtinTools(), fns...)
	if err != nil {
		return nil, nil, err
	}
	if err := conf.Build(); err != nil {
		return nil, nil, err
	}
	return cfg, conf, nil
}
