package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"hackstats/internal/providers/common"
	"hackstats/internal/stats"
)

const rule = "============================================================"

// Write renders the data insights narrative for s.
func Write(w io.Writer, s stats.Summary) error {
	b := &strings.Builder{}

	fmt.Fprintln(b, rule)
	fmt.Fprintln(b, "DATA INSIGHTS SUMMARY")
	fmt.Fprintln(b, rule)

	fmt.Fprintf(b, "\nTotal Hackathons: %s\n", count(s.Total))
	fmt.Fprintf(b, "Open: %s\n", count(s.Open))
	fmt.Fprintf(b, "Closed: %s\n", count(s.Closed))

	fmt.Fprintln(b, "\nPrize Statistics:")
	fmt.Fprintf(b, "   Hackathons with prizes: %s\n", count(s.Prizes.Count))
	fmt.Fprintf(b, "   Average prize: %s\n", dollars(s.Prizes.Mean))
	fmt.Fprintf(b, "   Median prize: %s\n", dollars(s.Prizes.Median))
	fmt.Fprintf(b, "   Highest prize: %s\n", dollars(s.Prizes.Max))

	fmt.Fprintln(b, "\nRegistration Statistics:")
	fmt.Fprintf(b, "   Hackathons with registrations: %s\n", count(s.Registrations.Count))
	fmt.Fprintf(b, "   Average registrations: %s\n", rounded(s.Registrations.Mean))
	fmt.Fprintf(b, "   Median registrations: %s\n", rounded(s.Registrations.Median))
	fmt.Fprintf(b, "   Highest registrations: %s\n", rounded(s.Registrations.Max))

	ranking(b, "Top 3 Organizations", s.TopOrganizations)
	ranking(b, "Top 3 Themes", s.TopThemes)
	ranking(b, "Top 3 Locations", s.TopLocations)

	fmt.Fprintf(b, "\nFeatured: %s (%.1f%%)\n", count(s.Featured), s.Percent(s.Featured))
	fmt.Fprintf(b, "Winners Announced: %s (%.1f%%)\n", count(s.WinnersAnnounced), s.Percent(s.WinnersAnnounced))
	fmt.Fprintf(b, "Managed by Devpost: %s (%.1f%%)\n", count(s.ManagedByDevpost), s.Percent(s.ManagedByDevpost))

	fmt.Fprintln(b, "\n"+rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func ranking(b *strings.Builder, title string, counts []stats.Count) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(counts) == 0 {
		fmt.Fprintln(b, "   (none)")
		return
	}
	for i, c := range counts {
		fmt.Fprintf(b, "   %d. %s: %d hackathons\n", i+1, c.Key, c.Count)
	}
}

func count(n int) string {
	return common.FormatNumber(int64(n))
}

func rounded(f float64) string {
	return common.FormatNumber(int64(math.Round(f)))
}

func dollars(f float64) string {
	return common.FormatDollars(int64(math.Round(f)))
}
