package vision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// toolCall is one tool invocation the model requested.
type toolCall struct {
	id    string
	name  string
	input json.RawMessage
}

// turn is one assistant response, flattened out of the SDK's content union
// so the instruction loop and its tests stay independent of SDK internals.
type turn struct {
	text   string
	calls  []toolCall
	stop   string
	tokens int64
}

// asParam rebuilds the assistant message for the conversation history.
func (t *turn) asParam() anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if t.text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(t.text))
	}
	for _, c := range t.calls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    c.id,
				Name:  c.name,
				Input: json.RawMessage(c.input),
			},
		})
	}
	return anthropic.NewAssistantMessage(blocks...)
}

// chatModel is the slice of the messages API the instruction loop uses.
type chatModel interface {
	converse(ctx context.Context, params anthropic.MessageNewParams) (*turn, error)
}

type anthropicModel struct {
	client anthropic.Client
}

func newAnthropicModel(apiKey string) anthropicModel {
	return anthropicModel{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(2),
		),
	}
}

func (m anthropicModel) converse(ctx context.Context, params anthropic.MessageNewParams) (*turn, error) {
	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	t := &turn{
		stop:   string(msg.StopReason),
		tokens: msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}
	for _, blk := range msg.Content {
		switch v := blk.AsAny().(type) {
		case anthropic.TextBlock:
			t.text += v.Text
		case anthropic.ToolUseBlock:
			raw, err := json.Marshal(v.Input)
			if err != nil {
				return nil, fmt.Errorf("decoding input of tool %s: %w", v.Name, err)
			}
			t.calls = append(t.calls, toolCall{id: v.ID, name: v.Name, input: raw})
		}
	}
	return t, nil
}
