package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/tKV/cmd/kv"
	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tkv",
		Short: "transactional key-value store",
		Long: fmt.Sprintf(`tKV (v%s)

A transactional key-value store library written in Go, with
interchangeable backing engines: a pure in-memory engine and
durable embedded engines (bbolt, pebble) behind one contract.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "engine"
	RootCmd.PersistentFlags().String(key, "bolt", util.WrapString("storage engine to use (memory, bolt, pebble)"))
	key = "db"
	RootCmd.PersistentFlags().String(key, "tkv.db", util.WrapString("path to the backing database file or directory (ignored for the memory engine)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
