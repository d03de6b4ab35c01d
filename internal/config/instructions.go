package config

import (
	"fmt"
	"sort"
	"strings"

	"presswork/internal/template"
)

// InstructionBundle maps action names to the natural-language templates the
// vision provider renders and sends to the model. Templates use {{ var }}
// placeholders; the variables each action may reference are declared below
// and checked at load time, so a typo in a bundle fails startup instead of a
// run.
type InstructionBundle struct {
	Actions map[string]string `yaml:"actions"`
}

// RequiredActions are the actions every bundle must define.
var RequiredActions = []string{
	"system",
	"login",
	"open_new_post",
	"set_title",
	"set_body",
	"upload_image",
	"set_featured_image",
	"set_seo",
	"set_slug",
	"set_excerpt",
	"set_author",
	"set_taxonomy",
	"insert_related",
	"insert_faq",
	"save_draft",
	"publish",
	"schedule",
	"capture_url",
	"current_post_id",
	"verify_draft",
	"verify_saved",
}

// actionVariables declares the variables each action's template may use.
var actionVariables = map[string][]string{
	"system":             {},
	"login":              {"url"},
	"open_new_post":      {"url"},
	"set_title":          {"title"},
	"set_body":           {"body"},
	"upload_image":       {"source", "alt", "caption", "position"},
	"set_featured_image": {"source", "alt"},
	"set_seo":            {"meta_title", "meta_description", "focus_keyword", "keywords", "canonical", "og_title", "og_description"},
	"set_slug":           {"slug"},
	"set_excerpt":        {"excerpt"},
	"set_author":         {"author"},
	"set_taxonomy":       {"categories", "primary", "tags"},
	"insert_related":     {"related"},
	"insert_faq":         {"faq_html"},
	"save_draft":         {},
	"publish":            {},
	"schedule":           {"when"},
	"capture_url":        {},
	"current_post_id":    {},
	"verify_draft":       {},
	"verify_saved":       {},
}

// Template returns the named action template.
func (b *InstructionBundle) Template(action string) (string, error) {
	t, ok := b.Actions[action]
	if !ok || strings.TrimSpace(t) == "" {
		return "", fmt.Errorf("instruction bundle has no action %q", action)
	}
	return t, nil
}

// Render renders the named action template against the context.
func (b *InstructionBundle) Render(engine *template.Engine, action string, context map[string]interface{}) (string, error) {
	t, err := b.Template(action)
	if err != nil {
		return "", err
	}
	rendered, err := engine.RenderString(t, context)
	if err != nil {
		return "", fmt.Errorf("rendering action %q: %w", action, err)
	}
	return rendered, nil
}

// variables returns the declared variables for an action, sorted.
func variables(action string) []string {
	vars := append([]string(nil), actionVariables[action]...)
	sort.Strings(vars)
	return vars
}

// Validate checks that every required action exists and that no template
// references an undeclared variable.
func (b *InstructionBundle) Validate(engine *template.Engine) error {
	var errs ValidationErrors

	if len(b.Actions) == 0 {
		errs.Add("actions", "instruction bundle defines no actions")
		return errs
	}

	for _, action := range RequiredActions {
		if strings.TrimSpace(b.Actions[action]) == "" {
			errs.Add(fmt.Sprintf("actions.%s", action), "required action is missing")
		}
	}

	for action, tmpl := range b.Actions {
		declared, known := actionVariables[action]
		if !known {
			// Extra actions are allowed (custom composites); they may use
			// any variables.
			continue
		}
		allowed := make(map[string]bool, len(declared))
		for _, v := range declared {
			allowed[v] = true
		}
		for _, used := range engine.ExtractVariables(tmpl) {
			if !allowed[used] {
				errs.Add(fmt.Sprintf("actions.%s", action),
					fmt.Sprintf("template references undeclared variable %q (declared: %s)",
						used, strings.Join(declared, ", ")))
			}
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// merge overlays file-provided actions onto the receiver, one action at a
// time; actions absent from the file keep their defaults.
func (b *InstructionBundle) merge(other *InstructionBundle) {
	if other == nil {
		return
	}
	if b.Actions == nil {
		b.Actions = make(map[string]string)
	}
	for action, tmpl := range other.Actions {
		b.Actions[action] = tmpl
	}
}
