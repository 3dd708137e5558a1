package kv

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/kvdb"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for tKV engines",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix    = "__test"
	perfIterations   = 10000
	perfValueSizeKB  = 1
	perfTxnBatchSize = 16
)

func init() {
	// add flags
	key := "iterations"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of operations per benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 1, util.WrapString("Size of the test values (in KB)"))
	key = "txn-batch"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("Number of staged writes per write transaction"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfIterations = viper.GetInt("iterations")
	perfValueSizeKB = viper.GetInt("value-size")
	perfTxnBatchSize = viper.GetInt("txn-batch")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for tKV engines")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Engine:     %s\n", viper.GetString("engine"))
	fmt.Printf("  Iterations: %d\n", perfIterations)
	fmt.Printf("  Value size: %d KB\n", perfValueSizeKB)
	fmt.Printf("  Txn batch:  %d\n", perfTxnBatchSize)
	fmt.Println()

	registry := metrics.NewRegistry()
	value := make([]byte, perfValueSizeKB*1024)

	// write
	writeTimer := metrics.NewRegisteredTimer("write", registry)
	for i := 0; i < perfIterations; i++ {
		key := []byte(fmt.Sprintf("%s-%d", perfKeyPrefix, i))
		var err error
		writeTimer.Time(func() {
			err = store.Write(key, value)
		})
		if err != nil {
			return err
		}
	}
	printTimer("write", writeTimer)

	// read
	readTimer := metrics.NewRegisteredTimer("read", registry)
	for i := 0; i < perfIterations; i++ {
		key := []byte(fmt.Sprintf("%s-%d", perfKeyPrefix, i))
		var err error
		readTimer.Time(func() {
			_, err = store.Read(key)
		})
		if err != nil {
			return err
		}
	}
	printTimer("read", readTimer)

	// write transaction (perfTxnBatchSize staged writes per commit)
	txnTimer := metrics.NewRegisteredTimer("write-txn", registry)
	for i := 0; i < perfIterations/perfTxnBatchSize; i++ {
		var err error
		txnTimer.Time(func() {
			err = store.WriteTransaction(func(txn kvdb.Transaction) error {
				for j := 0; j < perfTxnBatchSize; j++ {
					key := []byte(fmt.Sprintf("%s-txn-%d-%d", perfKeyPrefix, i, j))
					if err := txn.Write(key, value); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if err != nil {
			return err
		}
	}
	printTimer("write-txn", txnTimer)

	// cleanup
	delTimer := metrics.NewRegisteredTimer("del", registry)
	for i := 0; i < perfIterations; i++ {
		key := []byte(fmt.Sprintf("%s-%d", perfKeyPrefix, i))
		var err error
		delTimer.Time(func() {
			err = store.Remove(key)
		})
		if err != nil {
			return err
		}
	}
	printTimer("del", delTimer)

	return nil
}

// printTimer prints one benchmark result line
func printTimer(name string, timer metrics.Timer) {
	fmt.Printf("%-10s count=%-8d mean=%-12s p95=%-12s p99=%-12s max=%s\n",
		name,
		timer.Count(),
		time.Duration(timer.Mean()).Round(time.Nanosecond),
		time.Duration(timer.Percentile(0.95)).Round(time.Nanosecond),
		time.Duration(timer.Percentile(0.99)).Round(time.Nanosecond),
		time.Duration(timer.Max()),
	)
}
