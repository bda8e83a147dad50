package generator

import (
	"strings"

	"github.com/samber/lo"

	"ai_content_agents/validate"
)

const (
	defaultTweetCount = 3
	defaultSlideCount = 5
	minCount          = 1
	maxCount          = 20
	maxListItems      = 20
	maxListItemLength = 200
	maxMaterialLength = 60000
)

var companyRule = validate.Rule{Field: "topic", Label: "Company name", Required: true, Min: 2, Max: 100, NoRepeats: true}

// Prepare validates in and returns the sanitized copy with defaults filled.
// Rules see the text with markup removed but not yet escaped, so a name like
// "Bob's Cafe & Bar" is checked as typed.
func (in UserInput) Prepare(v *validate.Validator) (UserInput, validate.Errors) {
	if errs := in.plain().WithDefaults().Validate(v); len(errs) > 0 {
		return in, errs
	}
	return in.Sanitized().WithDefaults(), nil
}

// plain strips markup from the free-text fields without escaping.
func (in UserInput) plain() UserInput {
	out := in
	for _, f := range []*string{&out.Topic, &out.Tone, &out.Style, &out.Audience, &out.WebsiteName,
		&out.AboutInfo, &out.Name, &out.Role, &out.Bio, &out.Prompt} {
		*f = validate.StripTags(*f)
	}
	out.URL = strings.TrimSpace(in.URL)
	out.Industry = strings.ToLower(validate.StripTags(in.Industry))
	out.Skills = lo.Compact(lo.Map(in.Skills, func(s string, _ int) string { return validate.StripTags(s) }))
	out.Projects = lo.Compact(lo.Map(in.Projects, func(s string, _ int) string { return validate.StripTags(s) }))
	out.Material = cleanMaterial(in.Material)
	return out
}

// Sanitized returns a copy with every user-typed field sanitized. Material
// keeps its line breaks but loses any markup.
func (in UserInput) Sanitized() UserInput {
	out := in
	out.Topic = validate.Sanitize(in.Topic)
	out.Tone = validate.Sanitize(in.Tone)
	out.Style = validate.Sanitize(in.Style)
	out.Audience = validate.Sanitize(in.Audience)
	out.URL = strings.TrimSpace(in.URL)
	out.WebsiteName = validate.Sanitize(in.WebsiteName)
	out.Industry = strings.ToLower(validate.Sanitize(in.Industry))
	out.AboutInfo = validate.Sanitize(in.AboutInfo)
	out.Name = validate.Sanitize(in.Name)
	out.Role = validate.Sanitize(in.Role)
	out.Bio = validate.Sanitize(in.Bio)
	out.Prompt = validate.Sanitize(in.Prompt)
	out.Skills = sanitizeList(in.Skills)
	out.Projects = sanitizeList(in.Projects)
	out.Material = cleanMaterial(in.Material)
	return out
}

func cleanMaterial(s string) string {
	s = validate.StripTagsMultiline(s)
	if len(s) > maxMaterialLength {
		s = strings.ToValidUTF8(s[:maxMaterialLength], "")
	}
	return s
}

func sanitizeList(items []string) []string {
	cleaned := lo.Map(items, func(s string, _ int) string { return validate.Sanitize(s) })
	return lo.Compact(cleaned)
}

// WithDefaults fills optional numeric fields.
func (in UserInput) WithDefaults() UserInput {
	if in.Count == 0 {
		switch in.Kind {
		case KindTweet:
			in.Count = defaultTweetCount
		case KindPresentation:
			in.Count = defaultSlideCount
		}
	}
	return in
}

// Validate applies the rules of the input's kind. It uses v for the industry
// allow-list; nil means the defaults.
func (in UserInput) Validate(v *validate.Validator) validate.Errors {
	if v == nil {
		v = validate.NewValidator(nil)
	}
	var errs validate.Errors
	add := func(e validate.Errors) { errs = append(errs, e...) }

	switch in.Kind {
	case KindTweet:
		add(validate.Check(validate.TopicRule, in.Topic))
		add(validate.Check(validate.ToneRule, in.Tone))
		add(validate.Check(validate.StyleRule, in.Style))
		add(validate.CheckRange("count", in.Count, minCount, maxCount))
	case KindPresentation:
		add(validate.Check(validate.TopicRule, in.Topic))
		add(validate.Check(validate.AudienceRule, in.Audience))
		add(validate.Check(validate.ToneRule, in.Tone))
		add(validate.CheckRange("count", in.Count, minCount, maxCount))
	case KindWebsiteAudit:
		add(validate.CheckURL("url", in.URL))
	case KindV0Prompt:
		add(validate.ValidateWebsiteName(in.WebsiteName))
		add(v.ValidateIndustry(in.Industry))
		add(validate.ValidateAboutInfo(in.AboutInfo))
		add(validate.Check(validate.StyleRule, in.Style))
	case KindPromptEvaluation:
		add(validate.Check(validate.PromptRule, in.Prompt))
	case KindPortfolio:
		add(validate.Check(validate.NameRule, in.Name))
		add(validate.Check(validate.RoleRule, in.Role))
		add(validate.Check(validate.BioRule, in.Bio))
		add(checkList("skills", in.Skills))
		add(checkList("projects", in.Projects))
	case KindCompanyResearch:
		add(validate.Check(companyRule, in.Topic))
	case KindDataInsights:
		add(validate.Check(validate.Rule{Field: "material", Label: "Dataset summary", Required: true}, in.Material))
		add(validate.Check(validate.Rule{Field: "topic", Label: "Question", Max: 2000}, in.Topic))
	case KindAnswer:
		add(validate.Check(validate.QuestionRule, in.Topic))
	default:
		add(validate.Errors{{Field: "kind", Message: "unknown kind " + string(in.Kind), Code: validate.InvalidSelection}})
	}
	return errs
}

func checkList(field string, items []string) validate.Errors {
	if len(items) > maxListItems {
		return validate.CheckRange(field, len(items), 0, maxListItems)
	}
	var errs validate.Errors
	for _, item := range items {
		errs = append(errs, validate.Check(validate.Rule{Field: field, Max: maxListItemLength, NoRepeats: true}, item)...)
	}
	return errs
}
