package model

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	StateOpen     = "open"
	StateClosed   = "closed"
	StateUpcoming = "upcoming"
)

// Hackathon is one listing as it looked when it was fetched.
type Hackathon struct {
	ID                    int64
	Title                 string
	URL                   string
	OrganizationName      string
	Location              string
	OpenState             string
	SubmissionPeriodDates string
	TimeLeftToSubmission  string
	PrizeAmount           string
	CashPrizesCount       int
	OtherPrizesCount      int
	RegistrationsCount    int
	Themes                string
	Featured              bool
	WinnersAnnounced      bool
	InviteOnly            bool
	ManagedByDevpost      bool
	ThumbnailURL          string
	SubmissionGalleryURL  string
}

var prizeDigits = regexp.MustCompile(`[\d,]+`)

// PrizeValue returns the whole-dollar value of PrizeAmount, or 0 when it
// carries no digits.
func (h Hackathon) PrizeValue() int64 {
	return ParsePrizeAmount(h.PrizeAmount)
}

func ParsePrizeAmount(raw string) int64 {
	match := prizeDigits.FindString(raw)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func (h Hackathon) ThemeList() []string {
	return SplitThemes(h.Themes)
}

func SplitThemes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	themes := make([]string, 0, len(parts))
	for _, part := range parts {
		if theme := strings.TrimSpace(part); theme != "" {
			themes = append(themes, theme)
		}
	}
	return themes
}

func JoinThemes(themes []string) string {
	return strings.Join(themes, ", ")
}

func (h Hackathon) IsOpen() bool {
	return h.OpenState == StateOpen
}
