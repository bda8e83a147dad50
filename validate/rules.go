package validate

// DefaultIndustries is the industry allow-list used when none is configured.
var DefaultIndustries = []string{
	"saas",
	"ecommerce",
	"healthcare",
	"finance",
	"education",
	"real-estate",
	"restaurant",
	"fitness",
	"technology",
	"consulting",
	"creative",
	"nonprofit",
	"travel",
	"other",
}

// Built-in field rules shared by the agents.
var (
	WebsiteNameRule = Rule{Field: "websiteName", Label: "Website name", Required: true, Min: 2, Max: 100, Charset: NameCharset, NoRepeats: true}
	AboutInfoRule   = Rule{Field: "aboutInfo", Label: "About info", Required: true, Min: 20, Max: 1000, NoRepeats: true}
	TopicRule       = Rule{Field: "topic", Label: "Topic", Required: true, Min: 3, Max: 200, NoRepeats: true}
	ToneRule        = Rule{Field: "tone", Label: "Tone", Max: 50, NoRepeats: true}
	StyleRule       = Rule{Field: "style", Label: "Style", Max: 50, NoRepeats: true}
	AudienceRule    = Rule{Field: "audience", Label: "Audience", Max: 100, NoRepeats: true}
	PromptRule      = Rule{Field: "prompt", Label: "Prompt", Required: true, Min: 10, Max: 10000}
	NameRule        = Rule{Field: "name", Label: "Name", Required: true, Min: 2, Max: 100, Charset: NameCharset, NoRepeats: true}
	RoleRule        = Rule{Field: "role", Label: "Role", Max: 100, NoRepeats: true}
	BioRule         = Rule{Field: "bio", Label: "Bio", Max: 2000, NoRepeats: true}
	QuestionRule    = Rule{Field: "topic", Label: "Question", Required: true, Min: 2, Max: 2000}
)

// WebsiteForm is the input of the v0 prompt generator.
type WebsiteForm struct {
	WebsiteName string `json:"websiteName"`
	Industry    string `json:"industry"`
	AboutInfo   string `json:"aboutInfo"`
}

// Result is the JSON shape returned to form clients.
type Result struct {
	IsValid bool   `json:"isValid"`
	Errors  Errors `json:"errors"`
}

// Validator carries the configured industry allow-list.
type Validator struct {
	Industries []string
}

// NewValidator returns a Validator; an empty list falls back to DefaultIndustries.
func NewValidator(industries []string) *Validator {
	if len(industries) == 0 {
		industries = DefaultIndustries
	}
	return &Validator{Industries: industries}
}

func (v *Validator) IndustryRule() Rule {
	return Rule{Field: "industry", Label: "Industry", Required: true, Options: v.Industries}
}

func (v *Validator) ValidateIndustry(value string) Errors {
	return Check(v.IndustryRule(), value)
}

// ValidateUserInput validates every field of form and reports all failures.
func (v *Validator) ValidateUserInput(form WebsiteForm) Result {
	errs := Errors{}
	errs = append(errs, ValidateWebsiteName(form.WebsiteName)...)
	errs = append(errs, v.ValidateIndustry(form.Industry)...)
	errs = append(errs, ValidateAboutInfo(form.AboutInfo)...)
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

var defaultValidator = NewValidator(nil)

func ValidateWebsiteName(value string) Errors { return Check(WebsiteNameRule, value) }

func ValidateAboutInfo(value string) Errors { return Check(AboutInfoRule, value) }

func ValidateIndustry(value string) Errors { return defaultValidator.ValidateIndustry(value) }

func ValidateURL(value string) Errors { return CheckURL("url", value) }

func ValidateUserInput(form WebsiteForm) Result { return defaultValidator.ValidateUserInput(form) }
