package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/tKV/lib/kvdb"
	"github.com/ValentinKolb/tKV/lib/kvdb/engines/boltdb"
	"github.com/ValentinKolb/tKV/lib/kvdb/engines/memdb"
	"github.com/ValentinKolb/tKV/lib/kvdb/engines/pebbledb"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetStore creates and opens a storage engine based on configuration.
// The engine is wrapped with operation counters.
func GetStore() (kvdb.Store, error) {
	engine := viper.GetString("engine")
	path := viper.GetString("db")

	var store kvdb.Store
	switch engine {
	case "memory":
		store = memdb.NewMemStore()
	case "bolt":
		store = boltdb.NewBoltStore()
	case "pebble":
		store = pebbledb.NewPebbleStore()
	default:
		return nil, fmt.Errorf("invalid engine %s", engine)
	}

	if err := store.Open(path); err != nil {
		return nil, err
	}

	return kvdb.NewInstrumentedStore(store, engine), nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.Root().PersistentFlags())
}
