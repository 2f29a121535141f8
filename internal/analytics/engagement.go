package analytics

import (
	"sort"
	"strings"
)

const (
	ChannelBlog         = "blog"
	ChannelEmail        = "email"
	ChannelSocial       = "social"
	ChannelLandingPages = "landingPages"
	ChannelOther        = "other"
)

const trendingLimit = 5

// ChannelFor maps a content or campaign type onto a reporting channel.
func ChannelFor(kind string) string {
	k := strings.ToLower(kind)
	switch {
	case strings.Contains(k, "blog"), strings.Contains(k, "seo"), strings.Contains(k, "article"):
		return ChannelBlog
	case strings.Contains(k, "email"), strings.Contains(k, "newsletter"), strings.Contains(k, "mailchimp"):
		return ChannelEmail
	case strings.Contains(k, "social"), strings.Contains(k, "twitter"), strings.Contains(k, "linkedin"),
		strings.Contains(k, "facebook"), strings.Contains(k, "instagram"):
		return ChannelSocial
	case strings.Contains(k, "landing"), strings.Contains(k, "lead-magnet"), strings.Contains(k, "funnel"):
		return ChannelLandingPages
	default:
		return ChannelOther
	}
}

type ChannelEngagement struct {
	ContentPieces  int     `json:"contentPieces"`
	Campaigns      int     `json:"campaigns"`
	Impressions    int64   `json:"impressions"`
	Interactions   int64   `json:"interactions"`
	UniqueUsers    int64   `json:"uniqueUsers"`
	ReturningUsers int64   `json:"returningUsers"`
	EngagementRate float64 `json:"engagementRate"`
}

type EngagementChannels struct {
	Blog         ChannelEngagement `json:"blog"`
	Email        ChannelEngagement `json:"email"`
	Social       ChannelEngagement `json:"social"`
	LandingPages ChannelEngagement `json:"landingPages"`
	Other        ChannelEngagement `json:"other"`
}

func (c *EngagementChannels) get(channel string) *ChannelEngagement {
	switch channel {
	case ChannelBlog:
		return &c.Blog
	case ChannelEmail:
		return &c.Email
	case ChannelSocial:
		return &c.Social
	case ChannelLandingPages:
		return &c.LandingPages
	default:
		return &c.Other
	}
}

type EngagementSummary struct {
	Impressions       int64   `json:"impressions"`
	TotalInteractions int64   `json:"totalInteractions"`
	UniqueUsers       int64   `json:"uniqueUsers"`
	ReturningUsers    int64   `json:"returningUsers"`
	EngagementRate    float64 `json:"engagementRate"`
	ReturningRate     float64 `json:"returningRate"`
	ContentPublished  int     `json:"contentPublished"`
}

type TrendingItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CampaignType   string  `json:"campaignType"`
	Channel        string  `json:"channel"`
	Interactions   int64   `json:"interactions"`
	EngagementRate float64 `json:"engagementRate"`
}

type EngagementReport struct {
	Period   Period             `json:"period"`
	Summary  EngagementSummary  `json:"summary"`
	Channels EngagementChannels `json:"channels"`
	Trending []TrendingItem     `json:"trending"`
}

// ComputeEngagement aggregates imported campaign metrics per channel. Without imports every
// aggregate is zero.
func ComputeEngagement(ds Dataset) EngagementReport {
	r := EngagementReport{Period: ds.Period, Trending: []TrendingItem{}}

	for _, c := range ds.Contents {
		r.Channels.get(ChannelFor(c.ContentType)).ContentPieces++
		r.Summary.ContentPublished++
	}

	for _, c := range ds.Campaigns {
		m := c.Metrics
		ch := r.Channels.get(ChannelFor(c.CampaignType))
		ch.Campaigns++
		ch.Impressions += m.Impressions
		ch.Interactions += m.Interactions
		ch.UniqueUsers += m.UniqueUsers
		ch.ReturningUsers += m.ReturningUsers

		r.Summary.Impressions += m.Impressions
		r.Summary.TotalInteractions += m.Interactions
		r.Summary.UniqueUsers += m.UniqueUsers
		r.Summary.ReturningUsers += m.ReturningUsers

		if m.Interactions > 0 {
			r.Trending = append(r.Trending, TrendingItem{
				ID:             c.ID,
				Name:           c.Name,
				CampaignType:   c.CampaignType,
				Channel:        ChannelFor(c.CampaignType),
				Interactions:   m.Interactions,
				EngagementRate: Percent(float64(m.Interactions), float64(m.Impressions)),
			})
		}
	}

	for _, name := range []string{ChannelBlog, ChannelEmail, ChannelSocial, ChannelLandingPages, ChannelOther} {
		ch := r.Channels.get(name)
		ch.EngagementRate = Percent(float64(ch.Interactions), float64(ch.Impressions))
	}
	r.Summary.EngagementRate = Percent(float64(r.Summary.TotalInteractions), float64(r.Summary.Impressions))
	r.Summary.ReturningRate = Percent(float64(r.Summary.ReturningUsers), float64(r.Summary.UniqueUsers))

	sort.SliceStable(r.Trending, func(i, j int) bool {
		a, b := r.Trending[i], r.Trending[j]
		if a.Interactions != b.Interactions {
			return a.Interactions > b.Interactions
		}
		if a.EngagementRate != b.EngagementRate {
			return a.EngagementRate > b.EngagementRate
		}
		return a.ID < b.ID
	})
	if len(r.Trending) > trendingLimit {
		r.Trending = r.Trending[:trendingLimit]
	}
	return r
}
