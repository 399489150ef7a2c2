package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTextCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "text <file.pdf>",
		Short: "Print the plain text of every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := opts.extractor().ExtractFile(cmd.Context(), args[0])
			if err != nil {
				return unreadable(err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}
