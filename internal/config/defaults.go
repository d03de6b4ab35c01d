package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"presswork/internal/cms"
)

const userConfigDir = ".config/presswork"

// GetDefaultConfigPathOrPanic returns ~/.config/presswork, the directory the
// loader and CLI default to.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// DefaultSettings returns the settings a bare config directory runs with.
func DefaultSettings() Settings {
	return Settings{
		Provider: "dom",
		Fallback: FallbackSettings{
			Enabled:  true,
			Provider: "llm",
		},
		Browser: BrowserSettings{
			Headless:          true,
			ElementTimeout:    20 * time.Second,
			NavigationTimeout: 60 * time.Second,
		},
		Retry: RetrySettings{
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
		},
		Safety: SafetySettings{
			Enabled:    true,
			Production: true,
		},
		Vision: VisionSettings{
			Model:           "claude-sonnet-4-5",
			APIKeyEnv:       "ANTHROPIC_API_KEY",
			MaxIterations:   24,
			MaxTokensPerRun: 150000,
		},
		Server: ServerSettings{
			Listen:      ":8420",
			MetricsPath: "/metrics",
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		RunTimeout:       600 * time.Second,
		SelectorCacheTTL: 5 * time.Minute,
		CostBudgetUSD:    0,
	}
}

// DefaultSelectorBundle returns the compiled-in selector bundle. It covers
// the WordPress admin (classic editor first, block editor fallbacks) so the
// binary drives a stock install with an empty config directory.
func DefaultSelectorBundle() *SelectorBundle {
	return &SelectorBundle{
		Kinds: map[cms.Kind]KindSelectors{
			cms.KindWordPress: {
				Paths: map[string]string{
					"login":    "/wp-login.php",
					"new_post": "/wp-admin/post-new.php",
				},
				Elements: map[string][]string{
					"login_username": {"#user_login", "input[name='log']"},
					"login_password": {"#user_pass", "input[name='pwd']"},
					"login_submit":   {"#wp-submit", "input[type='submit'][name='wp-submit']"},

					// Present only after a successful login.
					"dashboard_sentinel": {"#wpadminbar", "#adminmenu", "body.wp-admin"},

					"post_title": {
						"#title",
						".editor-post-title__input",
						"h1[contenteditable='true'].wp-block-post-title",
					},
					"post_body": {
						"#content",
						".block-editor-default-block-appender__content",
						".editor-styles-wrapper",
					},
					// Classic editor's text (HTML) tab, used to write raw body HTML.
					"body_text_tab": {"#content-html", "button#content-html"},

					"save_draft_button":  {"#save-post", ".editor-post-save-draft"},
					"draft_saved_notice": {"#message.updated", ".is-saved", ".editor-post-saved-state.is-saved"},

					"publish_button":         {"#publish", ".editor-post-publish-button__button"},
					"confirm_publish_button": {".editor-post-publish-button", ".editor-post-publish-panel__header-publish-button button"},
					"published_panel":        {"#message.updated a", ".post-publish-panel__postpublish", ".components-snackbar"},
					"view_post_link":         {"#message.updated a", ".post-publish-panel__postpublish-buttons a"},
					"post_id_field":          {"#post_ID", "input[name='post_ID']"},
					"post_status":            {"#hidden_post_status", "#original_post_status", "#post-status-display"},

					"slug_input":    {"#post_name", "#new-post-slug", ".editor-post-slug__input"},
					"excerpt_input": {"#excerpt", ".editor-post-excerpt__textarea"},

					// Rendered only for multi-author sites and reassign-capable
					// roles; its absence is not an error.
					"author_select": {"#post_author_override", "select[name='post_author_override']", ".editor-post-author__select"},
					"author_option": {
						"//select[@id='post_author_override']/option[contains(normalize-space(.), '{{ name }}')]",
						"//select[@name='post_author_override']/option[contains(normalize-space(.), '{{ name }}')]",
						"//select[contains(@class,'editor-post-author__select')]/option[contains(normalize-space(.), '{{ name }}')]",
					},

					"media_add_button":    {"#insert-media-button", ".block-editor-media-placeholder__upload-button"},
					"media_upload_input":  {".media-frame input[type='file']", "#async-upload"},
					"media_alt_input":     {"#attachment-details-alt-text", ".attachment-details [data-setting='alt'] input, .attachment-details [data-setting='alt'] textarea"},
					"media_caption_input": {"#attachment-details-caption", ".attachment-details [data-setting='caption'] textarea"},
					"media_url_field":     {"#attachment-details-copy-link", ".attachment-details [data-setting='url'] input"},
					"media_close_button":  {".media-modal-close", ".media-frame a.media-modal-close"},

					"featured_image_button": {"#set-post-thumbnail", ".editor-post-featured-image__toggle"},
					"featured_image_set":    {".media-button-select", "#set-post-thumbnail-button"},

					// {{ name }} renders to the category's display name.
					"category_checkbox": {
						"//ul[@id='categorychecklist']//label[contains(normalize-space(.), '{{ name }}')]/input",
						"//div[contains(@class,'editor-post-taxonomies__hierarchical-terms-list')]//label[contains(normalize-space(.), '{{ name }}')]/preceding-sibling::input",
					},
					"primary_category_toggle": {
						"//ul[@id='categorychecklist']//label[contains(normalize-space(.), '{{ name }}')]/following-sibling::span[contains(@class,'primary')]",
					},
					"tag_input":      {"#new-tag-post_tag", ".components-form-token-field__input"},
					"tag_add_button": {".tagadd", "input.tagadd"},

					"schedule_toggle":       {".edit-timestamp", ".editor-post-schedule__toggle"},
					"schedule_date_input":   {"#jj", ".components-datetime__date input"},
					"schedule_month_input":  {"#mm", ".components-datetime__date select"},
					"schedule_year_input":   {"#aa"},
					"schedule_hour_input":   {"#hh", ".components-datetime__time-field-hours-input input"},
					"schedule_minute_input": {"#mn", ".components-datetime__time-field-minutes-input input"},
					"schedule_confirm":      {".save-timestamp", ".editor-post-schedule__dialog button[type='submit']"},

					// SEO plugin probes; absence of all of them is the
					// SEO_PLUGIN_MISSING warning, not an error.
					"seo_probe_yoast":    {"#wpseo_meta", ".yoast-seo-sidebar-panel"},
					"seo_probe_rankmath": {".rank-math-metabox-wrap", "#rank-math-metabox"},
					"seo_probe_aioseo":   {"#aioseo-settings", ".aioseo-post-settings"},
					"seo_probe_slimseo":  {".ss-meta-box", "#slim-seo"},
					"seo_probe_seolite":  {"#seo-lite-metabox"},

					// Field candidates span plugins; first visible wins.
					"seo_meta_title": {
						"#yoast_wpseo_title",
						"input[name='rank_math_title']",
						"#aioseo-post-title",
						"input[name='ss_title']",
					},
					"seo_meta_description": {
						"#yoast_wpseo_metadesc",
						"textarea[name='rank_math_description']",
						"#aioseo-post-description",
						"textarea[name='ss_description']",
					},
					"seo_focus_keyword": {
						"#yoast_wpseo_focuskw",
						"input[name='rank_math_focus_keyword']",
						"#aioseo-post-keyphrase",
					},

					// Plugin-dependent extras; a plugin without the field is
					// skipped silently.
					"seo_additional_keywords": {"#aioseo-post-keyphrases"},
					"seo_canonical": {
						"#yoast_wpseo_canonical",
						"input[name='rank_math_canonical_url']",
						"#aioseo-post-canonical-url",
					},
					"seo_og_title": {
						"#yoast_wpseo_opengraph-title",
						"input[name='rank_math_facebook_title']",
						"#aioseo-post-og-title",
					},
					"seo_og_description": {
						"#yoast_wpseo_opengraph-description",
						"textarea[name='rank_math_facebook_description']",
						"#aioseo-post-og-description",
					},
				},
			},
		},
	}
}

// DefaultInstructionBundle returns the compiled-in instruction templates for
// the vision provider.
func DefaultInstructionBundle() *InstructionBundle {
	return &InstructionBundle{
		Actions: map[string]string{
			"system": "You are operating a web browser to publish an article in a CMS admin panel. " +
				"You see screenshots of the current page and act through the provided tools. " +
				"Work step by step, take a screenshot after significant actions, and call done when the goal is reached. " +
				"If the goal cannot be reached, call done with success=false and a short reason.",

			"login": "Log into the CMS admin at {{ url }}. The username and password are already typed for you when you use the type_text tool with field=username or field=password. " +
				"Click the username field, type the username, click the password field, type the password, then submit the form. " +
				"You are done when the admin dashboard with its toolbar is visible.",

			"open_new_post": "Navigate to the new-post editor at {{ url }}. You are done when an empty post editor with a title field is visible.",

			"set_title": "Click the post title field and enter this exact title: {{ title }}. You are done when the title is visible in the field.",

			"set_body": "Switch the editor to its HTML/text mode if it has one, click the body area, and enter the article body exactly as provided: {{ body }}. " +
				"You are done when the body content is present in the editor.",

			"upload_image": "Open the media dialog, upload the file {{ source }}, set its alt text to {{ alt }}, set the caption to {{ caption }}, and insert it into the post after paragraph {{ position }}. " +
				"You are done when the image appears in the post body.",

			"set_featured_image": "Open the featured image panel, upload or select {{ source }}, and set it as the featured image. You are done when the featured image thumbnail is shown.",

			"set_seo": "Find the SEO plugin panel on the edit screen (Yoast, Rank Math, All in One SEO, or similar). " +
				"Set the SEO title to {{ meta_title }}, the meta description to {{ meta_description }}, and the focus keyword to {{ focus_keyword }}. " +
				"If the plugin accepts additional keyphrases, add: {{ keywords }}. " +
				"Where the plugin has fields for them and the value is not empty, set the canonical URL to {{ canonical }}, the social title to {{ og_title }}, and the social description to {{ og_description }}. " +
				"Skip any field whose value is empty and any field the plugin does not offer. " +
				"If no SEO plugin panel exists on this screen, call done with success=false and reason=seo_plugin_missing.",

			"set_author": "Set the post author to {{ author }} using the author dropdown in the post settings. " +
				"If the edit screen has no author control at all, call done with success=true. " +
				"If the dropdown exists but does not offer {{ author }}, call done with success=false and reason=author_not_available.",

			"set_slug": "Set the post's URL slug to {{ slug }} using the permalink editor. You are done when the permalink shows the new slug.",

			"set_excerpt": "Set the post's excerpt to the following text using the excerpt panel: {{ excerpt }}. You are done when the excerpt field holds the text.",

			"set_taxonomy": "In the post's category panel, check exactly these categories: {{ categories }}. Mark {{ primary }} as the primary category if the panel supports it. " +
				"Then add these tags: {{ tags }}. You are done when the categories are checked and the tags are listed.",

			"insert_related": "At the end of the post body, append a heading reading Related Articles followed by a list linking to: {{ related }}. You are done when the list is visible at the end of the body.",

			"insert_faq": "At the end of the post body, append the FAQ section exactly as provided: {{ faq_html }}. You are done when the FAQ section is present.",

			"save_draft": "Save the post as a draft using the editor's save-draft control. You are done when the editor confirms the draft was saved.",

			"publish": "Publish the post now. Use the publish button and confirm any publish panel the editor shows. You are done when the editor confirms the post is published.",

			"schedule": "Schedule the post for {{ when }}. Open the editor's schedule control, set the date and time, and confirm. You are done when the editor shows the post as scheduled.",

			"capture_url": "Report the public URL of the just-published post. Find the view-post link the editor shows after publishing and call report with url set to its href.",

			"current_post_id": "Report the numeric post ID of the post being edited. It appears in the page URL as the post parameter or in a hidden post_ID field. Call report with post_id set to the value, or an empty string if none exists yet.",

			"verify_draft": "Determine whether this post is currently in draft status. Check the editor's status display. Call report with draft set to true or false.",

			"verify_saved": "Determine whether the CMS currently holds a saved copy of this post (draft or published). Call report with saved set to true or false.",
		},
	}
}
