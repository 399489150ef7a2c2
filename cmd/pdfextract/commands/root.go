package commands

import (
	"os"

	"github.com/spf13/cobra"

	"guideline-extractor/internal/pdftext"
	"guideline-extractor/internal/shared/telemetry"
)

type options struct {
	engine   string
	logLevel string
}

// NewRootCmd builds the pdfextract command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "pdfextract",
		Short: "Extract text, images and recommendations from a clinical guideline PDF",
		Long: `pdfextract reads a single PDF and prints its plain text, writes its embedded
images as PNG files, or emits the recommendation statements it contains as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			telemetry.Configure(os.Stderr, opts.logLevel, "console")
		},
	}
	root.PersistentFlags().StringVar(&opts.engine, "engine", "native", "text engine: native or mupdf")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	root.AddCommand(newTextCmd(opts), newImagesCmd(opts), newRecommendationsCmd(opts))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) extractor() *pdftext.Extractor {
	return pdftext.NewFromName(o.engine)
}
