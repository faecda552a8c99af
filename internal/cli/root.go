package cli

import (
	"github.com/geocoder89/notehub/internal/client"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	apiURL     string
	output     string

	cfg    *Config
	client *client.Client
}

// NewRootCmd builds the notesctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "notesctl",
		Short:         "Command line client for the notehub API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "session file (default ~/.notesctl.yaml)")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "API base URL, overrides the session file")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "output format: table, json or yaml")

	root.AddCommand(
		registerCmd(a),
		loginCmd(a),
		logoutCmd(a),
		notesCmd(a),
	)

	return root
}

func (a *app) init() error {
	path := a.configPath
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}

	a.cfg = cfg
	a.client = client.New(cfg.APIURL, cfg)
	return nil
}
