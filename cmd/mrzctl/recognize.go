package main

import (
	"github.com/spf13/cobra"

	"go-passport-recognizer/llm"
	"go-passport-recognizer/mrz"
	"go-passport-recognizer/ocrv2"
)

var (
	recognizeConfig llm.LLMConfig
	recognizeV2     bool
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Send a passport photo to the vision model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		client := llm.NewOllamaClient(recognizeConfig)

		prompt := llm.BuildPrompt(recognizeConfig.Language)
		if recognizeV2 {
			prompt = llm.BuildPromptV2(recognizeConfig.Language)
		}
		requestID, text, err := client.ChatWithImage(cmd.Context(), image, prompt)
		if recognizeV2 {
			if err != nil {
				return printJSON(cmd, ocrv2.BuildErrorResponse(requestID, ocrv2.CodeLLMUnavailable, err.Error()))
			}
			return printJSON(cmd, ocrv2.BuildResponse(requestID, text))
		}
		if err != nil {
			return err
		}

		keys, found := mrz.Extract(text)
		if !found {
			return errKeysNotFound
		}
		return printJSON(cmd, keys)
	},
}

func init() {
	flags := recognizeCmd.Flags()
	flags.StringVar(&recognizeConfig.BaseURL, "base-url", llm.DefaultBaseURL, "Ollama base URL")
	flags.StringVar(&recognizeConfig.Model, "model", llm.DefaultModel, "vision model name")
	flags.IntVar(&recognizeConfig.TimeoutSec, "timeout", int(llm.DefaultTimeout.Seconds()), "request timeout in seconds")
	flags.StringVar(&recognizeConfig.Language, "lang", "ru", "prompt language")
	flags.BoolVar(&recognizeV2, "v2", false, "return the full v2 response")
}
