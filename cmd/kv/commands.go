package kv

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/tKV/lib/kvdb"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if err := store.Write([]byte(key), []byte(value)); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := store.Read([]byte(key))
			if kvdb.IsKeyError(err) {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, value=%s\n", key, value)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Removes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := store.Remove([]byte(key)); err != nil {
				return err
			}
			fmt.Println("del successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			_, err := store.Read([]byte(key))
			if err != nil && !kvdb.IsKeyError(err) {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, err == nil)
			return nil
		},
	}
	importCmd = &cobra.Command{
		Use:   "import [key=value ...]",
		Short: "Sets multiple keys in one atomic write transaction",
		Long: `Sets multiple keys in one atomic write transaction.

Either all pairs are committed or, if any pair is malformed or the
commit fails, none of them are.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := store.WriteTransaction(func(txn kvdb.Transaction) error {
				for _, arg := range args {
					key, value, ok := strings.Cut(arg, "=")
					if !ok || key == "" {
						return fmt.Errorf("invalid pair %q, expected key=value", arg)
					}
					if err := txn.Write([]byte(key), []byte(value)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("imported %d keys\n", len(args))
			return nil
		},
	}
)
