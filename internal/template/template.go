// Package template holds the prompt templates for translation and release
// note conversion, persisted as JSON files with built-in defaults.
package template

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Placeholder tokens that must appear in the user prompt template.
const (
	TextPlaceholder      = "{text}"
	InputTextPlaceholder = "{input_text}"
)

// ErrMissingPlaceholder means the user prompt template cannot receive the
// content it is supposed to wrap; callers fail fast before any network call.
var ErrMissingPlaceholder = errors.New("user prompt template is missing its placeholder")

type Template struct {
	SystemPrompt       string `json:"system_prompt"`
	UserPromptTemplate string `json:"user_prompt_template"`
}

func (t Template) Validate(placeholder string) error {
	if !strings.Contains(t.UserPromptTemplate, placeholder) {
		return fmt.Errorf("%w: %s", ErrMissingPlaceholder, placeholder)
	}
	return nil
}

// RenderUser substitutes every {key} token from vars into the user prompt.
func (t Template) RenderUser(vars map[string]string) string {
	return substitute(t.UserPromptTemplate, vars)
}

// RenderSystem substitutes every {key} token from vars into the system prompt.
func (t Template) RenderSystem(vars map[string]string) string {
	return substitute(t.SystemPrompt, vars)
}

// substitute applies keys in sorted order so rendering is deterministic even
// when a substituted value itself contains a token.
func substitute(s string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s = strings.ReplaceAll(s, "{"+key+"}", vars[key])
	}
	return s
}

// DefaultTranslation is used until a custom translation template is saved.
var DefaultTranslation = Template{
	SystemPrompt: "You are a professional translator. Translate the following text into {target_lang} naturally.",
	UserPromptTemplate: `Translate the following text into {target_lang}. Keep the translation natural and faithful to the context, and output only the translated result without commentary.

[BEGIN TEXT]
{text}
[END TEXT]`,
}

// DefaultReleaseNote turns developer change notes into customer-facing copy.
var DefaultReleaseNote = Template{
	SystemPrompt: "You are a product marketer for IT products. Rewrite the dry feature updates handed over by the development team into a benefit-driven release note customers will be excited to read.",
	UserPromptTemplate: `[Conversion formula]
1. Feature: what changed, stated factually
2. Advantage: what got technically better
3. Benefit: how the customer's money, time, or mood improves (turn this into the headline)

[Input: notes from the development team]
{input_text}

[Output format]
Headline: (one line emphasizing the benefit)
Details: (2-3 sentences focused on what the customer gains)
FAB breakdown:
- Feature: ...
- Advantage: ...
- Benefit: ...`,
}
