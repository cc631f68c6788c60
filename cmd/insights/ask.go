package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ffdc.sales_insights/pkg/chart"
	"ffdc.sales_insights/pkg/client"
	"ffdc.sales_insights/pkg/tabular"
	"ffdc.sales_insights/pkg/typewriter"
)

const chartNotice = "Chart rendering coming soon!"

var (
	askEndpoint string
	askPNG      string
	askStream   bool
	askWidth    int
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against a running server",
	Long: `Posts the question to the ask endpoint, types the answer out and
draws a bar chart when the answer is a table with at least two columns.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return nil
		}
		endpoint := askEndpoint
		if endpoint == "" {
			endpoint = cfg.Widget.Endpoint
		}

		out := cmd.OutOrStdout()
		c := client.New(endpoint)
		var err error
		if askStream {
			err = streamAnswer(cmd, c, question, out)
		} else {
			err = typeAnswer(cmd, c, question, out)
		}
		if err != nil {
			log.Debug(err.Error())
			fmt.Fprintln(out, errorStyle.Render("Error: Failed to fetch"))
			return err
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askEndpoint, "endpoint", "", "ask endpoint (defaults to widget.endpoint)")
	askCmd.Flags().StringVar(&askPNG, "png", "", "also write the chart to this PNG file")
	askCmd.Flags().BoolVar(&askStream, "ws", false, "stream the answer over the websocket endpoint")
	askCmd.Flags().IntVar(&askWidth, "width", 80, "terminal chart width")
}

func typeAnswer(cmd *cobra.Command, c *client.Client, question string, out io.Writer) error {
	resp, err := c.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	answer := resp.Answer
	if len(answer) == 0 {
		answer = []byte("null")
	}
	text, err := indent(answer)
	if err != nil {
		return err
	}
	if err := typewriter.New(cfg.Widget.TypeDelay).Write(cmd.Context(), out, text); err != nil {
		return err
	}
	fmt.Fprintln(out)

	rows, ok := tabular.Decode(answer)
	if !ok || !tabular.Chartable(rows) {
		fmt.Fprintln(out, chartNotice)
		return nil
	}
	bc, err := tabular.NewBarChart(rows)
	if err != nil {
		return err
	}
	return drawChart(out, bc)
}

func streamAnswer(cmd *cobra.Command, c *client.Client, question string, out io.Writer) error {
	return c.Stream(cmd.Context(), question, func(f client.Frame) error {
		switch f.Type {
		case "token":
			_, err := io.WriteString(out, f.Data)
			return err
		case "chart":
			fmt.Fprintln(out)
			if f.Chart == nil {
				return errors.New("chart frame without chart")
			}
			return drawChart(out, *f.Chart)
		case "notice":
			fmt.Fprintln(out)
			fmt.Fprintln(out, f.Data)
		}
		return nil
	})
}

func drawChart(out io.Writer, bc tabular.BarChart) error {
	s, err := chart.RenderTerminal(bc, askWidth)
	if err != nil {
		if errors.Is(err, chart.ErrNoNumericValues) {
			fmt.Fprintln(out, chartNotice)
			return nil
		}
		return err
	}
	fmt.Fprint(out, s)

	if askPNG == "" {
		return nil
	}
	f, err := os.Create(askPNG)
	if err != nil {
		return err
	}
	if err := chart.RenderPNG(f, bc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "chart written to %s\n", askPNG)
	return nil
}

func indent(raw []byte) (string, error) {
	if rows, ok := tabular.Decode(raw); ok {
		return tabular.Pretty(rows)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	return string(b), err
}
