// Package report renders correlation results: side-by-side comparisons with
// an external ranking and heatmap pages for the top-K grid.
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/botirk38/lastcorr/topk"
	"github.com/botirk38/lastcorr/types"
)

const colWidth = 30

// Row pairs the external and local item at the same rank. Either side is nil
// when its list is shorter.
type Row struct {
	External *types.RankedItem
	Local    *types.RankedItem
}

// Compare lines up external and local rankings by position. Items are not
// matched by name.
func Compare(external, local []types.RankedItem) []Row {
	n := max(len(external), len(local))
	rows := make([]Row, n)
	for i := range rows {
		if i < len(external) {
			rows[i].External = &external[i]
		}
		if i < len(local) {
			rows[i].Local = &local[i]
		}
	}
	return rows
}

// Neighbors returns the labels paired with focal, ranked by descending
// coefficient with undefined coefficients last.
func Neighbors(pairs []types.Pair, focal string) []types.RankedItem {
	var related []types.Pair
	for _, p := range pairs {
		if _, ok := p.Other(focal); ok {
			related = append(related, p)
		}
	}
	topk.SortDescending(related)

	out := make([]types.RankedItem, 0, len(related))
	for _, p := range related {
		other, _ := p.Other(focal)
		out = append(out, types.RankedItem{Name: other, Score: p.Coef})
	}
	return out
}

// TextOptions controls the comparison file layout.
type TextOptions struct {
	// Kind names what is compared, e.g. "tag" or "artist".
	Kind  string
	Focal string
	// ExternalScores adds the external match score column.
	ExternalScores bool
}

// WriteText writes the positional comparison as a fixed-width text listing.
func WriteText(w io.Writer, opts TextOptions, rows []Row) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\nSimilarity comparison between the Last.fm API data and custom calculation.\n\n")
	fmt.Fprintf(bw, "Compared %s: '%s'\n\n", opts.Kind, opts.Focal)

	if opts.ExternalScores {
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n",
			pad("Last.fm API"), pad("Match Coeff"), pad("Custom Calculation"), pad("Match Coeff"))
		dash := strings.Repeat("-", colWidth)
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n", dash, dash, dash, dash)
	} else {
		fmt.Fprintf(bw, "%s  %s\n", pad("Last.fm API"), "Custom Calculation")
		fmt.Fprintf(bw, "%s  %s\n", strings.Repeat("-", colWidth), strings.Repeat("-", 48))
	}

	for _, r := range rows {
		var ext string
		switch {
		case r.External == nil && opts.ExternalScores:
			ext = strings.Repeat(" ", 2*colWidth+1)
		case r.External == nil:
			ext = pad("")
		case opts.ExternalScores:
			ext = pad(r.External.Name) + "\t" + pad(FormatCoef(r.External.Score))
		default:
			ext = pad(r.External.Name)
		}

		var local string
		if r.Local != nil {
			local = pad(r.Local.Name) + "\t" + FormatCoef(r.Local.Score)
		}
		fmt.Fprintf(bw, "%s\t%s\n", ext, strings.TrimRight(local, " "))
	}
	return bw.Flush()
}

// FormatCoef renders a coefficient, keeping undefined values distinct from
// a computed zero.
func FormatCoef(v float64) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return fmt.Sprintf("%.12g", v)
}

func pad(s string) string {
	return fmt.Sprintf("%-*s", colWidth, s)
}
