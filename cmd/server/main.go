package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is normal outside development.
	envErr := godotenv.Load()

	root := newRootCmd()
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setup()
		if envErr != nil {
			log.Debug().Err(envErr).Msg(".env not loaded, using process environment")
		}
	}
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
