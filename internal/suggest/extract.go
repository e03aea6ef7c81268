// Package suggest parses structured trading suggestions out of assistant
// message text. Parsing is best-effort: malformed or missing payloads yield
// no suggestions, never an error.
package suggest

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/avanolabs/tradepanel/internal/types"
)

// fencedJSON matches the first ```json fenced block in a message.
var fencedJSON = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")

// Extract returns the suggestions embedded in assistant text.
//
// Two payload shapes are accepted: an array of suggestion objects
// (entries whose action is not exactly "long" or "short" are dropped), and
// a single recommendation object whose "recommendation" field is matched
// case-insensitively ("Hold" and anything else yields nothing). Any other
// shape, a missing fence, or invalid JSON yields an empty result.
func Extract(content string) []types.Suggestion {
	payload, ok := fencedPayload(content)
	if !ok {
		return nil
	}

	var raw any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil
	}

	switch v := raw.(type) {
	case []any:
		return fromArray(v)
	case map[string]any:
		return fromRecommendation(v)
	}
	return nil
}

func fencedPayload(content string) (string, bool) {
	m := fencedJSON.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func fromArray(items []any) []types.Suggestion {
	var out []types.Suggestion
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		action, _ := obj["action"].(string)
		if action != string(types.ActionLong) && action != string(types.ActionShort) {
			continue
		}
		out = append(out, build(types.TradeAction(action), obj))
	}
	return out
}

func fromRecommendation(obj map[string]any) []types.Suggestion {
	rec, _ := obj["recommendation"].(string)
	action := strings.ToLower(rec)
	if action != string(types.ActionLong) && action != string(types.ActionShort) {
		return nil
	}
	return []types.Suggestion{build(types.TradeAction(action), obj)}
}

func build(action types.TradeAction, obj map[string]any) types.Suggestion {
	return types.Suggestion{
		Action:     action,
		Collateral: number(obj, "collateral"),
		Leverage:   number(obj, "leverage"),
		TakeProfit: number(obj, "takeProfit"),
		StopLoss:   number(obj, "stopLoss"),
	}
}

func number(obj map[string]any, key string) *float64 {
	if v, ok := obj[key].(float64); ok {
		return &v
	}
	return nil
}
