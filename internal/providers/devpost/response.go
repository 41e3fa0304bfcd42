package devpost

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hackstats/internal/model"
	"hackstats/internal/providers/common"
)

type listingResponse struct {
	Hackathons []listing `json:"hackathons"`
	Meta       struct {
		TotalCount any `json:"total_count"`
		PerPage    any `json:"per_page"`
	} `json:"meta"`
}

type listing struct {
	ID                    any    `json:"id"`
	Title                 string `json:"title"`
	URL                   string `json:"url"`
	OrganizationName      string `json:"organization_name"`
	OpenState             string `json:"open_state"`
	SubmissionPeriodDates string `json:"submission_period_dates"`
	TimeLeftToSubmission  string `json:"time_left_to_submission"`
	PrizeAmount           string `json:"prize_amount"`
	RegistrationsCount    any    `json:"registrations_count"`
	Featured              any    `json:"featured"`
	WinnersAnnounced      any    `json:"winners_announced"`
	InviteOnly            any    `json:"invite_only"`
	ManagedByDevpost      any    `json:"managed_by_devpost_badge"`
	ThumbnailURL          string `json:"thumbnail_url"`
	SubmissionGalleryURL  string `json:"submission_gallery_url"`
	DisplayedLocation     *struct {
		Icon     string `json:"icon"`
		Location string `json:"location"`
	} `json:"displayed_location"`
	PrizesCounts *struct {
		Cash  any `json:"cash"`
		Other any `json:"other"`
	} `json:"prizes_counts"`
	Themes []struct {
		ID   any    `json:"id"`
		Name string `json:"name"`
	} `json:"themes"`
}

// pageCount is ceil(total_count / per_page); zero when meta is missing.
func (r listingResponse) pageCount() int {
	total := common.ToInt64(r.Meta.TotalCount)
	perPage := common.ToInt64(r.Meta.PerPage)
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int((total + perPage - 1) / perPage)
}

// records flattens every listing. Listings without a usable id are returned
// separately as "title (id=raw)" descriptions.
func (r listingResponse) records() (out []model.Hackathon, skipped []string) {
	out = make([]model.Hackathon, 0, len(r.Hackathons))
	for _, item := range r.Hackathons {
		h, ok := flatten(item)
		if !ok {
			skipped = append(skipped, fmt.Sprintf("%q (id=%q)", strings.TrimSpace(item.Title), common.ToString(item.ID)))
			continue
		}
		out = append(out, h)
	}
	return out, skipped
}

func flatten(item listing) (model.Hackathon, bool) {
	id := common.ToInt64(item.ID)
	if id == 0 {
		return model.Hackathon{}, false
	}

	h := model.Hackathon{
		ID:                    id,
		Title:                 strings.TrimSpace(item.Title),
		URL:                   item.URL,
		OrganizationName:      strings.TrimSpace(item.OrganizationName),
		OpenState:             item.OpenState,
		SubmissionPeriodDates: item.SubmissionPeriodDates,
		TimeLeftToSubmission:  item.TimeLeftToSubmission,
		PrizeAmount:           stripMarkup(item.PrizeAmount),
		RegistrationsCount:    int(common.ToInt64(item.RegistrationsCount)),
		Themes:                model.JoinThemes(themeNames(item)),
		Featured:              common.ToBool(item.Featured),
		WinnersAnnounced:      common.ToBool(item.WinnersAnnounced),
		InviteOnly:            common.ToBool(item.InviteOnly),
		ManagedByDevpost:      common.ToBool(item.ManagedByDevpost),
		ThumbnailURL:          absoluteURL(item.ThumbnailURL),
		SubmissionGalleryURL:  item.SubmissionGalleryURL,
	}
	if item.DisplayedLocation != nil {
		h.Location = strings.TrimSpace(item.DisplayedLocation.Location)
	}
	if item.PrizesCounts != nil {
		h.CashPrizesCount = int(common.ToInt64(item.PrizesCounts.Cash))
		h.OtherPrizesCount = int(common.ToInt64(item.PrizesCounts.Other))
	}
	return h, true
}

func themeNames(item listing) []string {
	names := make([]string, 0, len(item.Themes))
	for _, theme := range item.Themes {
		if name := strings.TrimSpace(theme.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// stripMarkup drops the currency span Devpost wraps around prize values.
func stripMarkup(raw string) string {
	if !strings.Contains(raw, "<") {
		return strings.TrimSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}

// absoluteURL turns protocol-relative thumbnail links into https ones.
func absoluteURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}
