package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nikogura/resume-ai/pkg/config"
	"github.com/nikogura/resume-ai/pkg/llm"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var jsonOutput bool

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "resume-ai",
	Short: "AI assistance for resume editing",
	Long: `resume-ai drafts and analyzes resume content with a generative AI backend.

It scores resumes for applicant tracking systems, compares them with job
descriptions, drafts summaries, and serves the same tasks over HTTP for the
resume editor. Replies are normalized into fixed shapes whatever the model returns.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logrus.SetOutput(os.Stderr)
		if getVerbose() {
			logrus.SetLevel(logrus.DebugLevel)
			return
		}
		logrus.SetLevel(logrus.WarnLevel)
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.resume-ai/config.json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print raw JSON results")
}

// getVerbose returns the verbose flag value.
func getVerbose() (result bool) {
	result = verbose
	return result
}

// getConfigFile returns the config file path.
func getConfigFile() (result string) {
	result = configFile
	return result
}

// getJSONOutput returns the json flag value.
func getJSONOutput() (result bool) {
	result = jsonOutput
	return result
}

// newClient loads configuration and builds the AI façade it describes.
func newClient() (cfg config.Config, client *llm.Client, err error) {
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return cfg, client, err
	}

	logger := logrus.StandardLogger()

	var backend llm.Backend
	backend, err = llm.NewBackend(cfg.BackendConfig(logger))
	if err != nil {
		err = errors.Wrap(err, "failed to create AI backend")
		return cfg, client, err
	}

	client = llm.NewClient(backend,
		llm.WithLogger(logger),
		llm.WithGenerationSettings(cfg.GenerationSettings()),
		llm.WithModelLister(llm.NewModelLister(backend, cfg.BaseURL, cfg.APIKey())),
	)

	if getVerbose() {
		fmt.Fprintf(os.Stderr, "Using %s backend with model %s\n", backend.Name(), cfg.GetModel())
	}

	return cfg, client, err
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) (err error) {
	var data []byte
	data, err = json.MarshalIndent(v, "", "  ")
	if err != nil {
		err = errors.Wrap(err, "failed to marshal output")
		return err
	}
	fmt.Println(string(data))
	return err
}
