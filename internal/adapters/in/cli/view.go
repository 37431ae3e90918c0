package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockcharts/collageview/internal/app"
	"github.com/stockcharts/collageview/internal/domain"
)

type viewOptions struct {
	baseURL  string
	path     string
	output   string
	title    string
	timeout  time.Duration
	fragment bool
}

// newViewCmd creates the view command.
func newViewCmd() *cobra.Command {
	opts := viewOptions{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Render the collage view once and print it",
		Long: `Mount a single viewer against --base-url, wait for the fetch to settle and
write the rendered HTML to stdout or --output. Fetch failures render the
error view and do not fail the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", "http://127.0.0.1:3000", "Origin serving the collage document")
	cmd.Flags().StringVar(&opts.path, "path", domain.CollagePath, "Path of the collage document")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the HTML to this file instead of stdout")
	cmd.Flags().StringVar(&opts.title, "title", domain.DefaultPageTitle, "Page title")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Fetch timeout")
	cmd.Flags().BoolVar(&opts.fragment, "fragment", false, "Print only the view fragment")

	return cmd
}

func runView(cmd *cobra.Command, opts viewOptions) error {
	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	state, err := app.Render(cmd.Context(), app.RenderOptions{
		BaseURL:  opts.baseURL,
		Path:     opts.path,
		Title:    opts.title,
		Timeout:  opts.timeout,
		Fragment: opts.fragment,
	}, w)
	if err != nil {
		return err
	}

	if state.HasError {
		cmd.PrintErrf("%s: %s\n", domain.ErrorHeadline, state.ErrorMessage)
	}
	return nil
}
