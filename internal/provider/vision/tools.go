package vision

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// Tool names the model acts through. The instruction templates in the
// default bundle reference these by name.
const (
	toolClick      = "click"
	toolTypeText   = "type_text"
	toolPressKey   = "press_key"
	toolScroll     = "scroll"
	toolScreenshot = "screenshot"
	toolUploadFile = "upload_file"
	toolReport     = "report"
	toolDone       = "done"
)

// Credential field names type_text substitutes locally, so credentials never
// appear in the conversation.
const (
	fieldUsername = "username"
	fieldPassword = "password"
)

type clickArgs struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type typeTextArgs struct {
	Text  string `json:"text"`
	Field string `json:"field"`
}

type pressKeyArgs struct {
	Key string `json:"key"`
}

type scrollArgs struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// reportArgs is the structured observation the introspection instructions
// ask for.
type reportArgs struct {
	URL    string `json:"url"`
	PostID string `json:"post_id"`
	Draft  *bool  `json:"draft"`
	Saved  *bool  `json:"saved"`
	Notes  string `json:"notes"`
}

type doneArgs struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

func tool(name, description string, properties map[string]interface{}) anthropic.ToolUnionParam {
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
			},
		},
	}
}

func browserTools() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		tool(toolClick, "Click at viewport coordinates taken from the latest screenshot.",
			map[string]interface{}{
				"x": map[string]interface{}{"type": "number", "description": "X coordinate in pixels (required)"},
				"y": map[string]interface{}{"type": "number", "description": "Y coordinate in pixels (required)"},
			}),
		tool(toolTypeText, "Type text into the currently focused element. For login credentials set field to username or password and leave text empty; the real value is typed for you.",
			map[string]interface{}{
				"text":  map[string]interface{}{"type": "string", "description": "Text to type"},
				"field": map[string]interface{}{"type": "string", "description": "username or password to type the stored credential"},
			}),
		tool(toolPressKey, "Press a named key.",
			map[string]interface{}{
				"key": map[string]interface{}{"type": "string", "description": "One of: enter, tab, escape, backspace, delete, arrow_up, arrow_down, arrow_left, arrow_right, page_up, page_down (required)"},
			}),
		tool(toolScroll, "Scroll the page by pixel deltas.",
			map[string]interface{}{
				"dx": map[string]interface{}{"type": "number", "description": "Horizontal delta"},
				"dy": map[string]interface{}{"type": "number", "description": "Vertical delta; positive scrolls down"},
			}),
		tool(toolScreenshot, "Take a fresh screenshot of the page.",
			map[string]interface{}{}),
		tool(toolUploadFile, "Attach the staged file to the visible file input. Only valid while an upload is staged.",
			map[string]interface{}{}),
		tool(toolReport, "Report a structured observation the instruction asked for.",
			map[string]interface{}{
				"url":     map[string]interface{}{"type": "string", "description": "Public post URL"},
				"post_id": map[string]interface{}{"type": "string", "description": "Numeric post ID, empty when none"},
				"draft":   map[string]interface{}{"type": "boolean", "description": "Whether the post is in draft status"},
				"saved":   map[string]interface{}{"type": "boolean", "description": "Whether the CMS holds a saved copy"},
				"notes":   map[string]interface{}{"type": "string", "description": "Optional free-form detail"},
			}),
		tool(toolDone, "Finish the instruction. Call with success=true when the goal is reached, success=false with a reason when it cannot be.",
			map[string]interface{}{
				"success": map[string]interface{}{"type": "boolean", "description": "Whether the goal was reached (required)"},
				"reason":  map[string]interface{}{"type": "string", "description": "Short failure reason when success is false"},
			}),
	}
}
