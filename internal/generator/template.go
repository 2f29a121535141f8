package generator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// TemplateProvider renders deterministic text without calling out. It is the fallback behind
// the LLM provider and the only provider used when no LLM is configured.
type TemplateProvider struct{}

func NewTemplateProvider() *TemplateProvider {
	return &TemplateProvider{}
}

func (TemplateProvider) Name() string { return "template" }

func (TemplateProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}

	var text string
	switch req.Kind {
	case KindBlogArticle:
		text = blogArticle(req.Prompt)
	case KindMarketingCopy, KindCampaignCopy:
		text = marketingCopy(req.Prompt)
	case KindSEOContent:
		text = seoContent(req.Prompt)
	case KindSocialMedia:
		text = socialPost(req.Prompt)
	case KindBookDescription:
		if req.Fields != nil {
			text = bookDescription(req.Fields)
		} else {
			text = bookDescription(map[string]string{"title": Headline(req.Prompt), "description": req.Prompt})
		}
	case KindLandingPage:
		text = landingPage(req.Prompt)
	case KindEmail:
		text = email(req.Prompt)
	default:
		text = generic(req.Prompt)
	}
	return Completion{Text: text, TokensUsed: EstimateTokens(req.Prompt) + EstimateTokens(text)}, nil
}

// EstimateTokens approximates tokens as four thirds of the word count.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 4 / 3))
}

// Headline turns the first line of a prompt into a title-cased heading of at most 80 runes.
func Headline(prompt string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(prompt), "\n", 2)[0])
	words := strings.Fields(line)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	h := strings.Join(words, " ")
	if r := []rune(h); len(r) > 80 {
		h = strings.TrimSpace(string(r[:80]))
	}
	return h
}

// Hashtags derives up to n tags from the distinct longer words of text.
func Hashtags(text string, n int) []string {
	seen := map[string]bool{}
	var tags []string
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) < 4 || seen[w] || stopWords[w] {
			continue
		}
		seen[w] = true
		tags = append(tags, "#"+w)
		if len(tags) == n {
			break
		}
	}
	return tags
}

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "your": true, "have": true,
	"will": true, "about": true, "into": true, "their": true, "there": true, "what": true,
	"when": true, "which": true, "them": true, "they": true, "been": true, "were": true,
}

func blogArticle(prompt string) string {
	title := Headline(prompt)
	return fmt.Sprintf(`# %[1]s

## Introduction
%[2]s is a topic that rewards a structured approach. This article walks through the essentials and the practical steps that make the difference.

## Why It Matters
Teams that invest in %[3]s see clearer messaging, better engagement and a more predictable pipeline.

## How to Get Started
1. Define the outcome you want from %[3]s.
2. Identify the audience and the questions they are asking.
3. Publish consistently and measure what resonates.

## Key Takeaways
- Start small and iterate.
- Tie every piece back to a measurable goal.

## Conclusion
%[1]s is not a one-off effort. Revisit it regularly and let the results guide the next step.`,
		title, strings.TrimSpace(prompt), strings.ToLower(title))
}

func marketingCopy(prompt string) string {
	title := Headline(prompt)
	return fmt.Sprintf(`%s

Stop settling for less. %s gives you exactly what you need, without the noise.

- Save time with a proven approach
- See results you can measure
- Get support when you need it

Get started today.`, title, strings.TrimSpace(prompt))
}

func seoContent(prompt string) string {
	title := Headline(prompt)
	lower := strings.ToLower(title)
	return fmt.Sprintf(`Meta description: Learn everything about %[2]s, with practical tips and answers to common questions.

# %[1]s: A Complete Guide

%[1]s explained in plain terms. This guide covers what %[2]s is, why it matters and how to apply it.

## What Is %[1]s?
An overview of %[2]s and the problems it solves.

## Best Practices for %[1]s
Focus on clarity, relevance and consistency when working on %[2]s.

## Frequently Asked Questions
**How long does %[2]s take?** It depends on scope, but most teams see progress within weeks.`, title, lower)
}

func socialPost(prompt string) string {
	body := strings.TrimSpace(prompt)
	tags := strings.Join(Hashtags(prompt, 3), " ")
	post := body + " 🚀 Don't miss out!"
	if tags != "" {
		post += " " + tags
	}
	if r := []rune(post); len(r) > 280 {
		post = string(r[:277]) + "..."
	}
	return post
}

// bookDescription always yields more than MinDescriptionLength characters.
func bookDescription(fields map[string]string) string {
	title := strings.TrimSpace(fields["title"])
	if title == "" {
		title = "This book"
	}
	category := strings.TrimSpace(fields["category"])
	if category == "" {
		category = "practical"
	}
	desc := strings.TrimSpace(fields["description"])
	if desc != "" && !strings.HasSuffix(desc, ".") {
		desc += "."
	}
	text := fmt.Sprintf("%s is a %s guide for readers who want clear, well-structured and actionable insight.", title, strings.ToLower(category))
	if desc != "" {
		text += " " + desc
	}
	return text + " Inside you will find step-by-step explanations and worked examples you can apply right away."
}

func landingPage(prompt string) string {
	title := Headline(prompt)
	return fmt.Sprintf(`HERO: %[1]s
Subheadline: Everything you need to succeed with %[2]s.

BENEFITS:
- Clear, step-by-step guidance
- Proven techniques you can use today
- Lifetime access to updates

SOCIAL PROOF: [testimonials]

CALL TO ACTION: Get %[1]s now`, title, strings.ToLower(title))
}

func email(prompt string) string {
	title := Headline(prompt)
	return fmt.Sprintf(`Subject: %[1]s

Hi there,

%[2]s

We put this together because we think it will help you make real progress.

[Take the next step]

Best regards,
The Team`, title, strings.TrimSpace(prompt))
}

func generic(prompt string) string {
	return fmt.Sprintf("%s\n\n%s", Headline(prompt), strings.TrimSpace(prompt))
}
