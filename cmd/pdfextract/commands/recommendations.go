package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"guideline-extractor/internal/pdfimages"
	"guideline-extractor/internal/pdftext"
	"guideline-extractor/internal/recommend"
)

func newRecommendationsCmd(opts *options) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:     "recommendations <file.pdf>",
		Aliases: []string{"recs"},
		Short:   "Emit the recommendation statements as JSON",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := opts.extractor().ExtractFile(cmd.Context(), args[0])
			if err != nil {
				return unreadable(err)
			}
			records := []recommend.Record{}
			if text != "" {
				records = recommend.Extract(text)
			}
			payload, err := recommend.Encode(records)
			if err != nil {
				return err
			}
			if outFile == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				return err
			}
			if err := os.WriteFile(outFile, payload, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d recommendations to %s\n", len(records), outFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write recommendations.json to this path instead of stdout")
	return cmd
}

// UnreadableError reports a PDF that could not be parsed.
type UnreadableError struct {
	Diagnostic string
	Err        error
}

func (e *UnreadableError) Error() string {
	return "read pdf: " + e.Diagnostic
}

func (e *UnreadableError) Unwrap() error {
	return e.Err
}

func unreadable(err error) error {
	var textErr *pdftext.Error
	if errors.As(err, &textErr) {
		return &UnreadableError{Diagnostic: textErr.Diagnostic, Err: err}
	}
	var imageErr *pdfimages.Error
	if errors.As(err, &imageErr) {
		return &UnreadableError{Diagnostic: imageErr.Diagnostic, Err: err}
	}
	return err
}

// Message renders err for the terminal.
func Message(err error) string {
	var u *UnreadableError
	if errors.As(err, &u) {
		return "Failed to read the PDF file: " + u.Diagnostic
	}
	return "Error: " + err.Error()
}
