package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go-passport-recognizer/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "mrzctl",
	Short: "Offline tools for passport recognition",
	Long: `mrzctl runs the recognizer building blocks without the HTTP server.

Examples:
  mrzctl extract answer.txt          # Pull BAC keys out of a saved model answer
  mrzctl v2 answer.json              # Build the v2 response for a saved answer
  mrzctl face --dg2 dg2.bin out.jpg  # Extract the chip face as JPEG
  mrzctl recognize photo.jpg         # Ask the vision model directly`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.InitLoggerTo(cmd.ErrOrStderr(), logLevel)
	}

	rootCmd.AddCommand(extractCmd, v2Cmd, faceCmd, recognizeCmd)
}

// readInput returns the file named by args[0], or stdin when there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return data, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
