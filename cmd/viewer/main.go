package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
)

// Config holds the defaults of every flag. Flags win over the environment.
type Config struct {
	ServerURL      string `envconfig:"VIEWER_SERVER_URL" default:"ws://localhost:5000"`
	Token          string `envconfig:"VIEWER_TOKEN"`
	UserID         string `envconfig:"VIEWER_USER_ID"`
	UserName       string `envconfig:"VIEWER_USER_NAME" default:"Viewer"`
	UserEmail      string `envconfig:"VIEWER_USER_EMAIL" default:"viewer@officepulse.local"`
	BadgerFilepath string `envconfig:"BADGER_FILEPATH"`
	Scope          string `envconfig:"COMMUNITY_SCOPE" default:"community"`
	Colours        bool   `envconfig:"VIEWER_COLOURS" default:"true"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(2)
	}
	if err := newRootCmd(&config).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(config *Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "viewer",
		Short:        "Follow the OfficePulse community chat from a terminal",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&config.Colours, "colours", config.Colours, "colour authors with their avatar colour")
	root.AddCommand(newChatCmd(config), newHistoryCmd(config))
	return root
}
