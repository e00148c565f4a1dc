package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-passport-recognizer/images"
)

var (
	faceFromDG2  bool
	faceMaxSize  int
	faceEOIBytes int
)

var faceCmd = &cobra.Command{
	Use:   "face <input> <output.jpg>",
	Short: "Convert a face image or DG2 file to JPEG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[:1])
		if err != nil {
			return err
		}
		if faceFromDG2 {
			data, err = images.FaceFromDG2(data)
			if err != nil {
				return fmt.Errorf("failed to read DG2: %w", err)
			}
		}

		normalizer := images.NewNormalizer(images.Options{EOIWindow: faceEOIBytes, MaxDimension: faceMaxSize})
		jpeg, err := normalizer.EnsureJPEG(data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], jpeg, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[1], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", args[1], len(jpeg))
		return nil
	},
}

func init() {
	faceCmd.Flags().BoolVar(&faceFromDG2, "dg2", false, "input is a raw DG2 data group")
	faceCmd.Flags().IntVar(&faceMaxSize, "max-dimension", 0, "bound width and height of converted images, 0 keeps the size")
	faceCmd.Flags().IntVar(&faceEOIBytes, "eoi-window", images.DefaultEOIWindow, "bytes allowed after the JPEG end marker")
}
