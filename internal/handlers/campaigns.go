package handlers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HanTheDev/content-automation-api/internal/apperr"
	"github.com/HanTheDev/content-automation-api/internal/dispatch"
	"github.com/HanTheDev/content-automation-api/internal/generator"
	"github.com/HanTheDev/content-automation-api/internal/models"
	"github.com/HanTheDev/content-automation-api/internal/store"
)

const defaultCampaignDays = 30

const (
	campaignTypeEmailSequence = "email-sequence"
	campaignTypeLeadMagnet    = "lead-magnet"
	campaignTypeSalesFunnel   = "sales-funnel"
	campaignTypeABTest        = "ab-test"
)

// campaignTransitions lists the statuses reachable from each status.
var campaignTransitions = map[string][]string{
	models.CampaignStatusDraft:  {models.CampaignStatusActive},
	models.CampaignStatusActive: {models.CampaignStatusPaused, models.CampaignStatusCompleted},
	models.CampaignStatusPaused: {models.CampaignStatusActive, models.CampaignStatusCompleted},
}

func canTransition(from, to string) bool {
	for _, s := range campaignTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type createCampaignRequest struct {
	CampaignName   string           `json:"campaignName" validate:"notblank"`
	CampaignType   string           `json:"campaignType" validate:"notblank"`
	Objective      string           `json:"objective" validate:"notblank"`
	TargetAudience string           `json:"targetAudience"`
	Budget         *decimal.Decimal `json:"budget"`
	Duration       int              `json:"duration" validate:"gte=0,lte=365"`
}

type campaignPhase struct {
	Phase     string    `json:"phase"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Focus     string    `json:"focus"`
}

// phaseTimeline splits a campaign into launch, growth and optimization thirds.
func phaseTimeline(start time.Time, days int) []campaignPhase {
	phases := []struct{ name, focus string }{
		{"launch", "Announce the offer and build awareness"},
		{"growth", "Scale the channels that convert"},
		{"optimization", "Retarget engaged prospects and close"},
	}
	out := make([]campaignPhase, 0, len(phases))
	cursor := start
	for i, p := range phases {
		span := days / len(phases)
		if i == len(phases)-1 {
			span = days - 2*(days/len(phases))
		}
		end := cursor.AddDate(0, 0, span)
		out = append(out, campaignPhase{Phase: p.name, StartDate: cursor, EndDate: end, Focus: p.focus})
		cursor = end
	}
	return out
}

func (h *Handlers) createCampaign(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body createCampaignRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	budget := decimal.Zero
	if body.Budget != nil {
		if body.Budget.IsNegative() {
			return nil, apperr.Validation("budget must not be negative")
		}
		budget = *body.Budget
	}
	days := body.Duration
	if days == 0 {
		days = defaultCampaignDays
	}

	audience := strings.TrimSpace(body.TargetAudience)
	prompt := fmt.Sprintf("%s campaign: %s\n\nObjective: %s\nAudience: %s",
		body.CampaignType, body.CampaignName, body.Objective, orDefault(audience, "general audience"))
	gen, err := h.gen.Generate(ctx, generator.KindCampaignCopy, prompt)
	if err != nil {
		return nil, generateErr(generator.KindCampaignCopy, err)
	}

	start := h.now().UTC()
	c := &models.MarketingCampaign{
		Name:           strings.TrimSpace(body.CampaignName),
		CampaignType:   strings.TrimSpace(body.CampaignType),
		Status:         models.CampaignStatusDraft,
		TargetAudience: audience,
		Budget:         budget,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, days),
		Content: map[string]any{
			"objective": body.Objective,
			"copy":      gen.Text,
			"apiUsed":   gen.APIUsed,
			"timeline":  phaseTimeline(start, days),
		},
		Metrics: models.CampaignMetrics{Revenue: decimal.Zero, Spend: decimal.Zero},
	}
	if err := h.store.CreateCampaign(ctx, c); err != nil {
		return nil, storeErr(err, "Campaign")
	}
	return charged(c, "Campaign created successfully", gen), nil
}

type updateCampaignRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active paused completed"`
}

func (h *Handlers) updateCampaign(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	id, err := entityID(req, "Campaign")
	if err != nil {
		return nil, err
	}
	var body updateCampaignRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	c, err := h.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Campaign")
	}
	if c.Status == body.Status {
		return ok(c, "Campaign status unchanged"), nil
	}
	if !canTransition(c.Status, body.Status) {
		return nil, apperr.Validation("Cannot change campaign status from %s to %s", c.Status, body.Status).
			With("allowed", campaignTransitions[c.Status])
	}
	c.Status = body.Status
	if err := h.store.UpdateCampaign(ctx, c); err != nil {
		return nil, storeErr(err, "Campaign")
	}
	return ok(c, "Campaign updated successfully"), nil
}

func (h *Handlers) listCampaigns(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	campaigns, err := h.store.ListCampaigns(ctx, store.CampaignFilter{
		Status:       req.Query.Get("status"),
		CampaignType: req.Query.Get("type"),
	})
	if err != nil {
		return nil, storeErr(err, "Campaign")
	}
	if campaigns == nil {
		campaigns = []models.MarketingCampaign{}
	}
	return ok(map[string]any{"campaigns": campaigns, "count": len(campaigns)}, ""), nil
}

type emailSequenceRequest struct {
	SequenceType string `json:"sequenceType" validate:"notblank"`
	Objective    string `json:"objective" validate:"notblank"`
	CampaignName string `json:"campaignName"`
	EmailCount   int    `json:"emailCount" validate:"gte=0,lte=12"`
	IntervalDays int    `json:"intervalDays" validate:"gte=0,lte=30"`
}

type sequenceEmail struct {
	Position int    `json:"position"`
	SendDay  int    `json:"sendDay"`
	Purpose  string `json:"purpose"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

var emailPurposes = []string{"welcome", "value", "story", "offer", "reminder"}

func (h *Handlers) emailSequence(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body emailSequenceRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	count := body.EmailCount
	if count == 0 {
		count = 5
	}
	interval := body.IntervalDays
	if interval == 0 {
		interval = 2
	}

	emails := make([]sequenceEmail, 0, count)
	gens := make([]generator.Generation, 0, count)
	for i := 0; i < count; i++ {
		purpose := emailPurposes[i%len(emailPurposes)]
		prompt := fmt.Sprintf("%s email %d of %d for a %s sequence\n\nObjective: %s",
			strings.ToUpper(purpose[:1])+purpose[1:], i+1, count, body.SequenceType, body.Objective)
		gen, err := h.gen.Generate(ctx, generator.KindEmail, prompt)
		if err != nil {
			return nil, generateErr(generator.KindEmail, err)
		}
		gens = append(gens, gen)
		emails = append(emails, sequenceEmail{
			Position: i + 1,
			SendDay:  i * interval,
			Purpose:  purpose,
			Subject:  emailSubject(gen.Text, prompt),
			Body:     gen.Text,
		})
	}

	name := orDefault(strings.TrimSpace(body.CampaignName), strings.TrimSpace(body.SequenceType)+" email sequence")
	c, err := h.saveCampaign(ctx, campaignTypeEmailSequence, name, (count-1)*interval, map[string]any{
		"sequenceType": body.SequenceType,
		"objective":    body.Objective,
		"emails":       emails,
	})
	if err != nil {
		return nil, err
	}
	return charged(map[string]any{
		"campaignId":   c.ID,
		"sequenceType": body.SequenceType,
		"emails":       emails,
		"totalDays":    (count - 1) * interval,
	}, "Email sequence created successfully", gens...), nil
}

// emailSubject takes the "Subject:" line of a generated email, falling back to a headline.
func emailSubject(text, prompt string) string {
	for _, line := range strings.Split(text, "\n") {
		if s, found := strings.CutPrefix(strings.TrimSpace(line), "Subject:"); found {
			return strings.TrimSpace(s)
		}
	}
	return generator.Headline(prompt)
}

type leadMagnetRequest struct {
	CampaignName string `json:"campaignName" validate:"notblank"`
	Objective    string `json:"objective" validate:"notblank"`
	MagnetType   string `json:"magnetType" validate:"omitempty,oneof=ebook checklist webinar template course"`
}

func (h *Handlers) leadMagnet(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body leadMagnetRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	magnet := orDefault(body.MagnetType, "ebook")

	prompt := fmt.Sprintf("Free %s for %s\n\nObjective: %s", magnet, body.CampaignName, body.Objective)
	gen, err := h.gen.Generate(ctx, generator.KindMarketingCopy, prompt)
	if err != nil {
		return nil, generateErr(generator.KindMarketingCopy, err)
	}
	title := generator.Headline(prompt)

	outline := []string{
		"Introduction: why " + strings.ToLower(body.Objective) + " matters",
		"The core framework",
		"Common mistakes and how to avoid them",
		"Quick wins you can apply today",
		"Next steps",
	}
	optIn := map[string]any{
		"headline":   "Get your free " + magnet,
		"fields":     []string{"email", "firstName"},
		"buttonText": "Send it to me",
		"consent":    "We will email you the " + magnet + " and occasional updates. Unsubscribe anytime.",
	}
	delivery := []sequenceEmail{
		{Position: 1, SendDay: 0, Purpose: "delivery", Subject: "Your free " + magnet + " is here", Body: "Download " + title + " using the link below."},
		{Position: 2, SendDay: 2, Purpose: "follow-up", Subject: "Did you get a chance to read it?", Body: "Here is the one idea from " + title + " to start with."},
		{Position: 3, SendDay: 5, Purpose: "offer", Subject: "Ready for the next step?", Body: gen.Text},
	}

	c, err := h.saveCampaign(ctx, campaignTypeLeadMagnet, strings.TrimSpace(body.CampaignName), 0, map[string]any{
		"objective":      body.Objective,
		"magnetType":     magnet,
		"title":          title,
		"outline":        outline,
		"optInForm":      optIn,
		"deliveryEmails": delivery,
		"promotionCopy":  gen.Text,
	})
	if err != nil {
		return nil, err
	}
	return charged(map[string]any{
		"campaignId":     c.ID,
		"magnetType":     magnet,
		"title":          title,
		"outline":        outline,
		"optInForm":      optIn,
		"deliveryEmails": delivery,
		"promotionCopy":  gen.Text,
	}, "Lead magnet created successfully", gen), nil
}

type salesFunnelRequest struct {
	CampaignName string           `json:"campaignName" validate:"notblank"`
	Objective    string           `json:"objective" validate:"notblank"`
	Stages       []string         `json:"stages" validate:"omitempty,max=8,dive,notblank"`
	ProductPrice *decimal.Decimal `json:"productPrice"`
}

type funnelStage struct {
	Position int    `json:"position"`
	Stage    string `json:"stage"`
	Goal     string `json:"goal"`
	Copy     string `json:"copy"`
}

var defaultFunnelStages = []string{"awareness", "interest", "decision", "action"}

var stageGoals = map[string]string{
	"awareness": "Reach new prospects",
	"interest":  "Capture leads",
	"decision":  "Nurture and overcome objections",
	"action":    "Convert to customers",
}

func (h *Handlers) salesFunnel(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body salesFunnelRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	if body.ProductPrice != nil && body.ProductPrice.IsNegative() {
		return nil, apperr.Validation("productPrice must not be negative")
	}
	stages := body.Stages
	if len(stages) == 0 {
		stages = defaultFunnelStages
	}

	out := make([]funnelStage, 0, len(stages))
	gens := make([]generator.Generation, 0, len(stages))
	for i, s := range stages {
		s = strings.ToLower(strings.TrimSpace(s))
		prompt := fmt.Sprintf("%s stage for %s\n\nObjective: %s", s, body.CampaignName, body.Objective)
		gen, err := h.gen.Generate(ctx, generator.KindMarketingCopy, prompt)
		if err != nil {
			return nil, generateErr(generator.KindMarketingCopy, err)
		}
		gens = append(gens, gen)
		goal, found := stageGoals[s]
		if !found {
			goal = "Move prospects to the next stage"
		}
		out = append(out, funnelStage{Position: i + 1, Stage: s, Goal: goal, Copy: gen.Text})
	}

	payload := map[string]any{
		"objective": body.Objective,
		"stages":    out,
	}
	if body.ProductPrice != nil {
		payload["productPrice"] = *body.ProductPrice
	}
	c, err := h.saveCampaign(ctx, campaignTypeSalesFunnel, strings.TrimSpace(body.CampaignName), 0, payload)
	if err != nil {
		return nil, err
	}
	data := map[string]any{
		"campaignId":   c.ID,
		"campaignName": c.Name,
		"stages":       out,
	}
	if body.ProductPrice != nil {
		data["productPrice"] = *body.ProductPrice
	}
	return charged(data, "Sales funnel created successfully", gens...), nil
}

type abTestRequest struct {
	CampaignName            string   `json:"campaignName" validate:"notblank"`
	Hypothesis              string   `json:"hypothesis" validate:"notblank"`
	Variants                []string `json:"variants" validate:"omitempty,min=2,max=5,dive,notblank"`
	Metric                  string   `json:"metric"`
	BaselineRate            float64  `json:"baselineRate" validate:"gte=0,lt=1"`
	MinimumDetectableEffect float64  `json:"minimumDetectableEffect" validate:"gte=0"`
}

type abVariant struct {
	Name           string  `json:"name"`
	TrafficPercent float64 `json:"trafficPercent"`
	Copy           string  `json:"copy"`
}

const (
	zAlpha = 1.96   // two-sided 95% confidence
	zBeta  = 0.8416 // 80% power
)

// SampleSizePerVariant returns the visitors each variant needs to detect a relative lift mde
// over baseline conversion rate p1.
func SampleSizePerVariant(p1, mde float64) (int, error) {
	p2 := p1 * (1 + mde)
	if p1 <= 0 || mde <= 0 || p2 >= 1 {
		return 0, fmt.Errorf("baseline %.4f with effect %.4f is not a valid proportion", p1, mde)
	}
	pbar := (p1 + p2) / 2
	num := zAlpha*math.Sqrt(2*pbar*(1-pbar)) + zBeta*math.Sqrt(p1*(1-p1)+p2*(1-p2))
	return int(math.Ceil(num * num / ((p2 - p1) * (p2 - p1)))), nil
}

func (h *Handlers) abTest(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	var body abTestRequest
	if err := bind(req, &body); err != nil {
		return nil, err
	}
	names := body.Variants
	if len(names) == 0 {
		names = []string{"control", "variant-b"}
	}
	baseline := body.BaselineRate
	if baseline == 0 {
		baseline = 0.05
	}
	mde := body.MinimumDetectableEffect
	if mde == 0 {
		mde = 0.2
	}
	perVariant, err := SampleSizePerVariant(baseline, mde)
	if err != nil {
		return nil, apperr.Validation("baselineRate and minimumDetectableEffect must describe a rate below 1")
	}

	share := math.Round(100/float64(len(names))*100) / 100
	variants := make([]abVariant, 0, len(names))
	gens := make([]generator.Generation, 0, len(names))
	for _, n := range names {
		prompt := fmt.Sprintf("%s for %s\n\nHypothesis: %s", n, body.CampaignName, body.Hypothesis)
		gen, err := h.gen.Generate(ctx, generator.KindMarketingCopy, prompt)
		if err != nil {
			return nil, generateErr(generator.KindMarketingCopy, err)
		}
		gens = append(gens, gen)
		variants = append(variants, abVariant{Name: n, TrafficPercent: share, Copy: gen.Text})
	}

	design := map[string]any{
		"hypothesis":              body.Hypothesis,
		"metric":                  orDefault(body.Metric, "conversion-rate"),
		"variants":                variants,
		"baselineRate":            baseline,
		"minimumDetectableEffect": mde,
		"sampleSizePerVariant":    perVariant,
		"totalSampleSize":         perVariant * len(names),
		"confidenceLevel":         0.95,
		"power":                   0.8,
	}
	c, err := h.saveCampaign(ctx, campaignTypeABTest, strings.TrimSpace(body.CampaignName), 0, design)
	if err != nil {
		return nil, err
	}
	data := map[string]any{"campaignId": c.ID}
	for k, v := range design {
		data[k] = v
	}
	return charged(data, "A/B test created successfully", gens...), nil
}

// saveCampaign stores a built campaign as a draft with zeroed metrics. days > 0 sets the
// end date; otherwise the campaign runs for the default length.
func (h *Handlers) saveCampaign(ctx context.Context, campaignType, name string, days int, content map[string]any) (*models.MarketingCampaign, error) {
	if days <= 0 {
		days = defaultCampaignDays
	}
	start := h.now().UTC()
	c := &models.MarketingCampaign{
		Name:         name,
		CampaignType: campaignType,
		Status:       models.CampaignStatusDraft,
		Content:      content,
		Budget:       decimal.Zero,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, days),
		Metrics:      models.CampaignMetrics{Revenue: decimal.Zero, Spend: decimal.Zero},
	}
	if err := h.store.CreateCampaign(ctx, c); err != nil {
		return nil, storeErr(err, "Campaign")
	}
	return c, nil
}
