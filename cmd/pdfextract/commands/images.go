package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"guideline-extractor/internal/pdfimages"
)

func newImagesCmd(opts *options) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "images <file.pdf>",
		Short: "Write every embedded image as image_N.png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			images, err := pdfimages.Extract(cmd.Context(), data)
			if err != nil {
				return unreadable(err)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			for _, img := range images {
				path := filepath.Join(outDir, img.FileName())
				if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", img.FileName(), err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tpage %d\t%dx%d\n", path, img.Page, img.Width, img.Height)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the PNG files")
	return cmd
}
