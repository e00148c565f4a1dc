package main

import (
	"errors"

	"github.com/spf13/cobra"

	"go-passport-recognizer/mrz"
	"go-passport-recognizer/ocrv2"
)

var errKeysNotFound = errors.New("MRZ not found in recognition result")

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the BAC keys from a model answer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		keys, found := mrz.Extract(string(text))
		if !found {
			return errKeysNotFound
		}
		return printJSON(cmd, keys)
	},
}

var v2RequestID string

var v2Cmd = &cobra.Command{
	Use:   "v2 [file]",
	Short: "Build the v2 recognition response for a model answer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		return printJSON(cmd, ocrv2.BuildResponse(v2RequestID, string(text)))
	},
}

func init() {
	v2Cmd.Flags().StringVar(&v2RequestID, "request-id", "offline", "request id to put in the response")
}
