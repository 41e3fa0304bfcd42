package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"hackstats/internal/model"
)

const (
	topOrganizations = 15
	topThemes        = 15
	topLocations     = 20
	summaryTop       = 3
)

// Numeric describes the positive values of one numeric column.
type Numeric struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

func Describe(values []float64) Numeric {
	vals := positive(values)
	if len(vals) == 0 {
		return Numeric{}
	}
	sort.Float64s(vals)
	return Numeric{
		Count:  len(vals),
		Mean:   stat.Mean(vals, nil),
		Median: median(vals),
		Max:    floats.Max(vals),
	}
}

// median of sorted values, averaging the middle pair for even lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// trimAbove returns the sorted values no greater than the p-quantile.
func trimAbove(values []float64, p float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	cutoff := stat.Quantile(p, stat.Empirical, sorted, nil)
	end := sort.Search(len(sorted), func(i int) bool { return sorted[i] > cutoff })
	return sorted[:end]
}

// Views holds every aggregate the chart job draws.
type Views struct {
	Total            int      `json:"total"`
	Status           []Count  `json:"status"`
	TopOrganizations []Count  `json:"top_organizations"`
	TopThemes        []Count  `json:"top_themes"`
	Prizes           []Bucket `json:"prizes"`
	Registrations    []Bucket `json:"registrations"`
	TopLocations     []Count  `json:"top_locations"`
	Featured         []Count  `json:"featured"`
	CashPrizes       []Bucket `json:"cash_prizes"`
	OtherPrizes      []Bucket `json:"other_prizes"`
	WinnersAnnounced []Count  `json:"winners_announced"`
	Management       []Count  `json:"management"`
}

func Compute(records []model.Hackathon) Views {
	var (
		states, orgs, locations, themes []string
		prizes, registrations           []float64
		cash, other                     []float64
	)
	for _, h := range records {
		states = append(states, h.OpenState)
		orgs = append(orgs, h.OrganizationName)
		locations = append(locations, h.Location)
		themes = append(themes, h.ThemeList()...)
		prizes = append(prizes, float64(h.PrizeValue()))
		registrations = append(registrations, float64(h.RegistrationsCount))
		cash = append(cash, float64(h.CashPrizesCount))
		other = append(other, float64(h.OtherPrizesCount))
	}

	return Views{
		Total:            len(records),
		Status:           ValueCounts(states),
		TopOrganizations: TopN(ValueCounts(orgs), topOrganizations),
		TopThemes:        TopN(ValueCounts(themes), topThemes),
		Prizes:           PrizeBuckets(prizes),
		Registrations:    RegistrationBuckets(registrations),
		TopLocations:     TopN(ValueCounts(locations), topLocations),
		Featured: Split(records, func(h model.Hackathon) bool { return h.Featured },
			"Featured", "Non-Featured"),
		CashPrizes:  PrizeCountBuckets(cash),
		OtherPrizes: PrizeCountBuckets(other),
		WinnersAnnounced: Split(records, func(h model.Hackathon) bool { return h.WinnersAnnounced },
			"Winners Announced", "Winners Not Announced"),
		Management: Split(records, func(h model.Hackathon) bool { return h.ManagedByDevpost },
			"Managed by Devpost", "Community Managed"),
	}
}

// Summary is the narrative "data insights" block.
type Summary struct {
	Total            int     `json:"total"`
	Open             int     `json:"open"`
	Closed           int     `json:"closed"`
	Prizes           Numeric `json:"prizes"`
	Registrations    Numeric `json:"registrations"`
	TopOrganizations []Count `json:"top_organizations"`
	TopThemes        []Count `json:"top_themes"`
	TopLocations     []Count `json:"top_locations"`
	Featured         int     `json:"featured"`
	WinnersAnnounced int     `json:"winners_announced"`
	ManagedByDevpost int     `json:"managed_by_devpost"`
}

func Summarize(records []model.Hackathon) Summary {
	s := Summary{Total: len(records)}

	var (
		orgs, locations, themes []string
		prizes, registrations   []float64
	)
	for _, h := range records {
		switch h.OpenState {
		case model.StateOpen:
			s.Open++
		case model.StateClosed:
			s.Closed++
		}
		if h.Featured {
			s.Featured++
		}
		if h.WinnersAnnounced {
			s.WinnersAnnounced++
		}
		if h.ManagedByDevpost {
			s.ManagedByDevpost++
		}
		orgs = append(orgs, h.OrganizationName)
		locations = append(locations, h.Location)
		themes = append(themes, h.ThemeList()...)
		prizes = append(prizes, float64(h.PrizeValue()))
		registrations = append(registrations, float64(h.RegistrationsCount))
	}

	s.Prizes = Describe(prizes)
	s.Registrations = Describe(registrations)
	s.TopOrganizations = TopN(ValueCounts(orgs), summaryTop)
	s.TopThemes = TopN(ValueCounts(themes), summaryTop)
	s.TopLocations = TopN(ValueCounts(locations), summaryTop)
	return s
}

// Percent is n as a percentage of the total; zero for an empty summary.
func (s Summary) Percent(n int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(n) / float64(s.Total) * 100
}
