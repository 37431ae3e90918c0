package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stockcharts/collageview/internal/app"
)

// newPublishCmd creates the publish command.
func newPublishCmd() *cobra.Command {
	var (
		srcDir    string
		publicDir string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Copy a generated collage into the public folder",
		Long: `Copy stock_charts_collage.html and the stock_png/ image folder from --src
into --public-dir so the view shell serves them. An existing image folder
is replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Publish(cmd.Context(), srcDir, publicDir)
			if err != nil {
				return err
			}

			ok := color.New(color.FgGreen).SprintFunc()
			cmd.Printf("%s Copied HTML file to %s\n", ok("[OK]"), res.HTMLPath)
			if res.ReplacedDir {
				cmd.Printf("%s Removed existing images folder\n", ok("[OK]"))
			}
			cmd.Printf("%s Copied images folder to %s\n", ok("[OK]"), res.ImagesDir)
			cmd.Printf("Copied %d image files\n", res.ImageCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&srcDir, "src", ".", "Directory containing the generated collage")
	cmd.Flags().StringVar(&publicDir, "public-dir", "./public", "Public folder served by the view shell")

	return cmd
}
