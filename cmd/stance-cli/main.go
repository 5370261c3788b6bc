// Command stance-cli runs Stance analyses from the terminal without a server.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
