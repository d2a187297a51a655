package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/spatial-cli/internal/envelope"
	"github.com/sells-group/spatial-cli/internal/model"
)

var printer = message.NewPrinter(language.English)

// PrintSummary writes the headline run numbers as an aligned table.
func PrintSummary(w io.Writer, dataset string, summary *model.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "dataset\t%s\n", dataset)
	fmt.Fprintf(tw, "points\t%s\n", printer.Sprintf("%d", summary.N))
	if summary.Rejected > 0 {
		fmt.Fprintf(tw, "rejected outside window\t%s\n", printer.Sprintf("%d", summary.Rejected))
	}
	fmt.Fprintf(tw, "window area\t%s km^2\n", printer.Sprintf("%.1f", summary.WindowArea/1e6))
	fmt.Fprintf(tw, "intensity\t%s points/km^2\n", printer.Sprintf("%.3f", summary.Intensity*1e6))
	fmt.Fprintf(tw, "mean NN distance\t%s m\n", printer.Sprintf("%.1f", summary.MeanNN))
	fmt.Fprintf(tw, "median NN distance\t%s m\n", printer.Sprintf("%.1f", summary.MedianNN))
	return tw.Flush()
}

// PrintEnvelope tabulates an envelope: r, observed, theoretical, lo, hi.
func PrintEnvelope(w io.Writer, env *envelope.Envelope) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s-function envelope (nsim=%d, rank=%d)\n", env.Name, env.NSim, env.Rank)
	fmt.Fprintln(tw, "r\tobserved\ttheoretical\tlo\thi")
	for i := range env.R {
		fmt.Fprintf(tw, "%.1f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			env.R[i], env.Obs[i], env.Theo[i], env.Lo[i], env.Hi[i])
	}
	return tw.Flush()
}
