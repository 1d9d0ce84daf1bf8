// Package prompt builds generation requests: the fixed instruction pair,
// the per-stamp user payload, and the JSON-schema response format.
package prompt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	openai "github.com/openai/openai-go"

	"stampmeta/pkg/models"
)

// ErrMissingID is returned for stamp records without a stable identifier.
// Callers decide whether to skip or abort; the builder never skips silently.
var ErrMissingID = errors.New("stamp record has no id")

var userPromptTmpl = template.Must(template.New("user_prompt").Parse(`次の入力をもとに**JSONのみ**を出力してください。

## 入力
* 絵文字の名前: ` + "`{{.Name}}`" + `
* 本文で使われた投稿（配列）:
{{.BodyUsages}}
* リアクションとして使われた投稿（配列）:
{{.ReactionUsages}}
* 絵文字画像: image_urlとして添付

### 注意

* 投稿は**参考**です。用途はこれらに**限定しない**でください。
* 画像に描かれた**文字・図柄は最重要手がかり**として反映してください。
* 出力は次のキーのみ: ` + "`description`, `keywords`" + `。**追加キー禁止**。`))

// RenderUserPrompt renders the user-role payload for one stamp. The evidence
// arrays are embedded as inert JSON text.
func RenderUserPrompt(ev models.StampEvidence) (string, error) {
	body, err := marshalUsages(ev.BodyUsages)
	if err != nil {
		return "", fmt.Errorf("encoding body usages: %w", err)
	}
	reactions, err := marshalUsages(ev.ReactionUsages)
	if err != nil {
		return "", fmt.Errorf("encoding reaction usages: %w", err)
	}

	name := ev.Name
	if name == "" {
		name = ev.ID
	}

	var buf bytes.Buffer
	err = userPromptTmpl.Execute(&buf, map[string]string{
		"Name":           name,
		"BodyUsages":     body,
		"ReactionUsages": reactions,
	})
	if err != nil {
		return "", fmt.Errorf("rendering user prompt: %w", err)
	}
	return buf.String(), nil
}

func marshalUsages(usages []models.Message) (string, error) {
	if usages == nil {
		usages = []models.Message{}
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(usages); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// BuildQueueItem turns one evidence bundle into one work-queue entry.
func BuildQueueItem(ev models.StampEvidence) (models.QueueItem, error) {
	if ev.ID == "" {
		return models.QueueItem{}, ErrMissingID
	}
	rendered, err := RenderUserPrompt(ev)
	if err != nil {
		return models.QueueItem{}, err
	}
	return models.QueueItem{ID: ev.ID, Prompt: rendered}, nil
}

// Messages assembles the full chat message list for one request: system and
// developer instructions plus the user payload with the image attached.
func Messages(userPrompt, imageURL string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(SystemInstruction),
		openai.DeveloperMessage(DeveloperInstruction),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(userPrompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
		}),
	}
}

// ResponseFormat returns the JSON-schema response format constraining the
// reply to exactly {description, keywords}.
func ResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"keywords": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"description", "keywords"},
		"additionalProperties": false,
	}

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "stamp_info",
				Description: openai.String("Description and search keywords for one stamp"),
				Schema:      schema,
				Strict:      openai.Bool(true),
			},
		},
	}
}
