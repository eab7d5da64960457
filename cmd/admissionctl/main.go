package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload" // Autoload .env file.
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prohmpiriya/eventic-admission/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "admissionctl",
		Short:         "Operate the ticket admission service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("db-host", "", "PostgreSQL host (DATABASE_HOST)")
	root.PersistentFlags().Int("db-port", 0, "PostgreSQL port (DATABASE_PORT)")
	root.PersistentFlags().String("redis-host", "", "Redis host (REDIS_HOST)")
	root.PersistentFlags().Bool("json", false, "output JSON")
	bindFlag(v, root, "DATABASE_HOST", "db-host")
	bindFlag(v, root, "DATABASE_PORT", "db-port")
	bindFlag(v, root, "REDIS_HOST", "redis-host")
	bindFlag(v, root, "json", "json")

	root.AddCommand(migrateCmd(v))
	root.AddCommand(seedCmd(v))
	root.AddCommand(rulesCmd(v))
	root.AddCommand(geoCmd(v))
	root.AddCommand(tokenCmd(v))

	return root
}

// bindFlag lets a flag override the environment only when it is set
func bindFlag(v *viper.Viper, root *cobra.Command, key, flag string) {
	_ = v.BindPFlag(key, root.PersistentFlags().Lookup(flag))
}

// loadConfig builds the service config from environment, .env and flags
func loadConfig(v *viper.Viper) (*config.Config, error) {
	return config.LoadFromViper(v)
}
