package gen

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
)

// FailureKind classifies a failed generation call for retry policy. Only
// rate limiting is retried; quota exhaustion and generic errors abort the
// run immediately.
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureRateLimit
	FailureQuota
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimit:
		return "rate_limit"
	case FailureQuota:
		return "quota"
	default:
		return "other"
	}
}

// ClassifiedError is the tagged failure returned by the generation client.
// The driver switches on Kind; no special error type is thrown across frames
// for control flow.
type ClassifiedError struct {
	Kind FailureKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify decides the failure kind, preferring structured information from
// the API error (HTTP status, error code) over message inspection.
func Classify(err error) FailureKind {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusPaymentRequired:
			return FailureQuota
		case http.StatusTooManyRequests:
			// OpenAI reports quota exhaustion with status 429 and a
			// distinct error code.
			if strings.EqualFold(apierr.Code, "insufficient_quota") {
				return FailureQuota
			}
			return FailureRateLimit
		}
		if strings.EqualFold(apierr.Code, "insufficient_quota") {
			return FailureQuota
		}
		// No structured match; fall back to the error's own fields.
		return classifyByMessage(apierr.Code + " " + apierr.Type + " " + apierr.Message)
	}
	return classifyByMessage(err.Error())
}

// quotaSignals are the phrases billing/quota failures are known to carry.
var quotaSignals = []string{
	"insufficient_quota",
	"insufficient quota",
	"quota exceeded",
	"exceeded your current quota",
	"hard limit reached",
	"out of credits",
	"insufficient credits",
	"insufficient balance",
	"payment required",
	"billing",
	"402",
}

// classifyByMessage is a compatibility shim for errors that arrive without
// structured fields, e.g. rewrapped by an LLM proxy. It inspects the
// lower-cased message text and should only ever run after Classify found no
// structured signal.
func classifyByMessage(text string) FailureKind {
	msg := strings.ToLower(text)

	for _, signal := range quotaSignals {
		if strings.Contains(msg, signal) {
			return FailureQuota
		}
	}
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return FailureRateLimit
	}
	return FailureOther
}
