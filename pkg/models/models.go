package models

import "time"

// --- Registry ---

// Stamp is one entry of the platform's stamp registry (stamps.json).
type Stamp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// --- Harvested messages ---

// MessageStamp is one reaction attached to a platform message.
type MessageStamp struct {
	StampID string `json:"stampId"`
	Count   int    `json:"count,omitempty"`
}

// PlatformMessage is the message shape returned by the messaging API.
// Only the fields the pipeline reads are declared.
type PlatformMessage struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
	Stamps    []MessageStamp `json:"stamps,omitempty"`
}

// Message is the prompt-ready form of a usage example: the message body plus
// the display names of the stamps that were attached to it.
type Message struct {
	Content string   `json:"content"`
	Stamps  []string `json:"stamps"`
}

// StampEvidence bundles everything the request builder needs for one stamp.
// BodyUsages and ReactionUsages hold at most five entries each, all of which
// have already passed the evidence filter.
type StampEvidence struct {
	ID             string
	Name           string
	BodyUsages     []Message
	ReactionUsages []Message
}

// --- Work queue & results ---

// QueueItem is one line of the generation work queue (llm_input.jsonl).
type QueueItem struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// GenerationResult is one validated generation output and one ledger line.
type GenerationResult struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Sentinel content recorded when a stamp's output never passed validation,
// so the stamp is marked done and not retried on later runs.
const PlaceholderDescription = "形式エラーのため正常な応答を生成できませんでした"

var placeholderKeywords = []string{"エラー", "形式不正"}

// NewPlaceholderResult builds the sentinel result for a stamp whose
// generation output could not be validated after all retries.
func NewPlaceholderResult(id string) GenerationResult {
	kw := make([]string, len(placeholderKeywords))
	copy(kw, placeholderKeywords)
	return GenerationResult{
		ID:          id,
		Description: PlaceholderDescription,
		Keywords:    kw,
	}
}

// IsPlaceholder reports whether a result carries the sentinel content.
func (r GenerationResult) IsPlaceholder() bool {
	return r.Description == PlaceholderDescription
}
