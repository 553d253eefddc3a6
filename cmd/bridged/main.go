// Command bridged runs the Coinbase/Binance DTC v8 market data bridge.
package main

import (
	"fmt"
	"os"

	"github.com/coinbase-dtc/bridge/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
