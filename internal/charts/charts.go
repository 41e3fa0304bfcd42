// Package charts renders the aggregate views of a hackathon dataset as PNG
// images.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"hackstats/internal/stats"
)

const countLabel = "Number of Hackathons"

var ErrNoData = errors.New("no hackathons to chart")

// Files lists every image the renderer produces, in drawing order.
var Files = []string{
	"01_status_distribution.png",
	"02_top_organizations.png",
	"03_popular_themes.png",
	"04_prize_distribution.png",
	"05_registration_distribution.png",
	"06_location_distribution.png",
	"07_featured_distribution.png",
	"08_prize_types_comparison.png",
	"09_winners_announced.png",
	"10_management_type.png",
}

type chart struct {
	file string
	desc string
	draw func(v stats.Views, path string) error
}

var chartSet = []chart{
	{Files[0], "hackathon status distribution", drawStatus},
	{Files[1], "top organizations", drawOrganizations},
	{Files[2], "popular themes", drawThemes},
	{Files[3], "prize distribution", drawPrizes},
	{Files[4], "registration distribution", drawRegistrations},
	{Files[5], "location distribution", drawLocations},
	{Files[6], "featured hackathons", drawFeatured},
	{Files[7], "prize types comparison", drawPrizeTypes},
	{Files[8], "winners announced status", drawWinners},
	{Files[9], "management type", drawManagement},
}

type Renderer struct {
	dir string
	log *slog.Logger
}

func NewRenderer(dir string, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{dir: dir, log: log}
}

// Render draws every chart into a staging directory and swaps it in for the
// charts directory only once all of them succeeded, so readers see either the
// previous set or the new one. It returns the final paths.
func (r *Renderer) Render(v stats.Views) ([]string, error) {
	if v.Total == 0 {
		return nil, ErrNoData
	}

	dir := filepath.Clean(r.dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create charts parent: %w", err)
	}
	staging, err := os.MkdirTemp(parent, ".charts-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for i, c := range chartSet {
		r.log.Info("generating chart", "n", i+1, "chart", c.desc)
		if err := c.draw(v, filepath.Join(staging, c.file)); err != nil {
			return nil, fmt.Errorf("chart %s: %w", c.file, err)
		}
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		return nil, fmt.Errorf("chmod staging dir: %w", err)
	}
	if err := r.swap(staging, dir); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(chartSet))
	for _, c := range chartSet {
		paths = append(paths, filepath.Join(r.dir, c.file))
	}
	return paths, nil
}

// swap replaces dir with staging. The previous dir is parked next to it and
// restored if the final rename fails.
func (r *Renderer) swap(staging, dir string) error {
	backup := staging + ".old"
	parked := false
	switch _, err := os.Stat(dir); {
	case err == nil:
		if err := os.Rename(dir, backup); err != nil {
			return fmt.Errorf("park previous charts: %w", err)
		}
		parked = true
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat charts dir: %w", err)
	}

	if err := os.Rename(staging, dir); err != nil {
		if parked {
			if restoreErr := os.Rename(backup, dir); restoreErr != nil {
				r.log.Error("restore previous charts", "backup", backup, "error", restoreErr)
			}
		}
		return fmt.Errorf("move charts into place: %w", err)
	}
	if parked {
		if err := os.RemoveAll(backup); err != nil {
			r.log.Warn("remove previous charts", "path", backup, "error", err)
		}
	}
	return nil
}

func save(p *plot.Plot, w, h vg.Length, path string) error {
	return p.Save(w, h, path)
}

func drawStatus(v stats.Views, path string) error {
	p, err := verticalBars("Hackathon Status Distribution", countLabel,
		fromCounts(v.Status).withShare(v.Total), []color.Color{red, green, blue}, false)
	if err != nil {
		return err
	}
	return save(p, 10*vg.Inch, 6*vg.Inch, path)
}

func drawOrganizations(v stats.Views, path string) error {
	p, err := horizontalBars(fmt.Sprintf("Top %d Organizations by Number of Hackathons", len(v.TopOrganizations)),
		countLabel, fromCounts(v.TopOrganizations), blue)
	if err != nil {
		return err
	}
	return save(p, 12*vg.Inch, 8*vg.Inch, path)
}

func drawThemes(v stats.Views, path string) error {
	p, err := horizontalBars(fmt.Sprintf("Top %d Most Popular Hackathon Themes", len(v.TopThemes)),
		countLabel, fromCounts(v.TopThemes), red)
	if err != nil {
		return err
	}
	return save(p, 12*vg.Inch, 8*vg.Inch, path)
}

func drawPrizes(v stats.Views, path string) error {
	p, err := verticalBars("Prize Amount Distribution (Hackathons with Prizes)", countLabel,
		fromBuckets(v.Prizes), []color.Color{orange}, true)
	if err != nil {
		return err
	}
	return save(p, 12*vg.Inch, 7*vg.Inch, path)
}

func drawRegistrations(v stats.Views, path string) error {
	p, err := verticalBars("Participant Registration Distribution", countLabel,
		fromBuckets(v.Registrations), []color.Color{purple}, true)
	if err != nil {
		return err
	}
	return save(p, 12*vg.Inch, 7*vg.Inch, path)
}

func drawLocations(v stats.Views, path string) error {
	p, err := horizontalBars(fmt.Sprintf("Top %d Hackathon Locations", len(v.TopLocations)),
		countLabel, fromCounts(v.TopLocations), teal)
	if err != nil {
		return err
	}
	return save(p, 12*vg.Inch, 8*vg.Inch, path)
}

func drawFeatured(v stats.Views, path string) error {
	p, err := verticalBars("Featured vs Non-Featured Hackathons", countLabel,
		fromCounts(v.Featured).withShare(v.Total), splitPalette(v.Featured, "Featured", blue, grey), false)
	if err != nil {
		return err
	}
	return save(p, 10*vg.Inch, 6*vg.Inch, path)
}

func drawWinners(v stats.Views, path string) error {
	p, err := verticalBars("Hackathons by Winner Announcement Status", countLabel,
		fromCounts(v.WinnersAnnounced).withShare(v.Total), splitPalette(v.WinnersAnnounced, "Winners Announced", orange, blue), false)
	if err != nil {
		return err
	}
	return save(p, 10*vg.Inch, 6*vg.Inch, path)
}

func drawManagement(v stats.Views, path string) error {
	p, err := verticalBars("Hackathons by Management Type", countLabel,
		fromCounts(v.Management).withShare(v.Total), splitPalette(v.Management, "Managed by Devpost", greenSea, darkRed), false)
	if err != nil {
		return err
	}
	return save(p, 10*vg.Inch, 6*vg.Inch, path)
}

// splitPalette keeps a flag's colour stable whichever side is larger.
func splitPalette(counts []stats.Count, trueKey string, yes, no color.Color) []color.Color {
	palette := make([]color.Color, 0, len(counts))
	for _, c := range counts {
		if c.Key == trueKey {
			palette = append(palette, yes)
		} else {
			palette = append(palette, no)
		}
	}
	if len(palette) == 0 {
		palette = append(palette, no)
	}
	return palette
}

// drawPrizeTypes puts the cash and non-cash prize count histograms side by
// side on one canvas.
func drawPrizeTypes(v stats.Views, path string) error {
	cash, err := verticalBars("Cash Prizes Distribution", countLabel, fromBuckets(v.CashPrizes), []color.Color{green}, false)
	if err != nil {
		return err
	}
	other, err := verticalBars("Other Prizes Distribution", countLabel, fromBuckets(v.OtherPrizes), []color.Color{carrot}, false)
	if err != nil {
		return err
	}

	img := vgimg.New(14*vg.Inch, 6*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{{cash, other}}, tiles, dc)
	cash.Draw(canvases[0][0])
	other.Draw(canvases[0][1])

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
