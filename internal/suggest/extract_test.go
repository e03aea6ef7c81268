// internal/suggest/extract_test.go
package suggest

import (
	"strings"
	"testing"

	"github.com/avanolabs/tradepanel/internal/types"
)

func TestExtractArray(t *testing.T) {
	content := "Here are my suggestions:\n```json\n[{\"action\":\"long\",\"collateral\":50}]\n```\nGood luck."

	got := Extract(content)
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	s := got[0]
	if s.Action != types.ActionLong {
		t.Errorf("expected action long, got %q", s.Action)
	}
	if s.Collateral == nil || *s.Collateral != 50 {
		t.Errorf("expected collateral 50, got %v", s.Collateral)
	}
	if s.Leverage != nil || s.TakeProfit != nil || s.StopLoss != nil {
		t.Error("expected unset fields to stay nil")
	}
}

func TestExtractArrayFiltersActions(t *testing.T) {
	content := "```json\n[" +
		`{"action":"long","leverage":10},` +
		`{"action":"hold"},` +
		`{"action":"Short"},` +
		`{"action":"short","stopLoss":110000},` +
		`{"note":"no action"}` +
		"]\n```"

	got := Extract(content)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Action != types.ActionLong || got[1].Action != types.ActionShort {
		t.Errorf("unexpected actions %q %q", got[0].Action, got[1].Action)
	}
}

func TestExtractRecommendationObject(t *testing.T) {
	content := "```json\n" +
		`{"asset":"BTC","recommendation":"Long","reasoning":"breakout","collateral":100,"leverage":10,"takeProfit":120000,"stopLoss":110000}` +
		"\n```"

	got := Extract(content)
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	s := got[0]
	if s.Action != types.ActionLong {
		t.Errorf("expected long, got %q", s.Action)
	}
	if s.Leverage == nil || *s.Leverage != 10 {
		t.Errorf("expected leverage 10, got %v", s.Leverage)
	}
	if s.TakeProfit == nil || *s.TakeProfit != 120000 {
		t.Errorf("expected takeProfit 120000, got %v", s.TakeProfit)
	}
}

func TestExtractRecommendationHold(t *testing.T) {
	content := "```json\n{\"asset\":\"BTC\",\"recommendation\":\"Hold\",\"reasoning\":\"chop\"}\n```"
	if got := Extract(content); len(got) != 0 {
		t.Errorf("expected no suggestions for Hold, got %d", len(got))
	}
}

func TestExtractNoFence(t *testing.T) {
	if got := Extract("just prose, no code block"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	if got := Extract("```json\n{not valid json\n```"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestExtractWrongShape(t *testing.T) {
	for _, content := range []string{
		"```json\n\"just a string\"\n```",
		"```json\n42\n```",
		"```json\n{\"action\":\"long\"}\n```", // object without recommendation field
	} {
		if got := Extract(content); len(got) != 0 {
			t.Errorf("Extract(%q): expected no suggestions, got %v", content, got)
		}
	}
}

func TestExtractFirstFenceOnly(t *testing.T) {
	content := "```json\n[{\"action\":\"long\"}]\n```\nand later\n```json\n[{\"action\":\"short\"}]\n```"
	got := Extract(content)
	if len(got) != 1 || got[0].Action != types.ActionLong {
		t.Errorf("expected only the first fence parsed, got %v", got)
	}
}

func TestExtractNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"```json\n\n```",
		"```json\nnull\n```",
		"```json\n[null, 1, \"x\"]\n```",
		strings.Repeat("`", 100),
		"```json\n[{\"action\":\"long\",\"collateral\":\"not a number\"}]\n```",
	}
	for _, in := range inputs {
		// A panic fails the test; results only need to be shape-safe.
		got := Extract(in)
		for _, s := range got {
			if s.Action != types.ActionLong && s.Action != types.ActionShort {
				t.Errorf("Extract(%q) produced invalid action %q", in, s.Action)
			}
		}
	}
}
