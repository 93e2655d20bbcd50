package usecase

import (
	"reflect"
	"testing"

	"social-content-ai/internal/domain"
	"social-content-ai/internal/domain/model"
)

func TestMerge(t *testing.T) {
	outputs := map[string]model.ProviderOutput{
		"openai":    {Text: "Fresh mugs for slow mornings. #Coffee #handmade", TokensIn: 10, TokensOut: 12},
		"anthropic": {Text: "Glazed by hand. #coffee #Ceramics #HANDMADE", TokensIn: 8, TokensOut: 9},
		"gemini":    {Error: "gemini: permanent error", ErrorKind: domain.ProviderPermanent, TokensIn: 0},
	}
	order := []string{"anthropic", "gemini", "openai"}

	m := Merge(order, outputs, true)

	wantTags := []string{"#coffee", "#Ceramics", "#HANDMADE"}
	if !reflect.DeepEqual(m.Hashtags, wantTags) {
		t.Errorf("expected %v, got %v", wantTags, m.Hashtags)
	}
	wantCaption := "Glazed by hand.\n\nFresh mugs for slow mornings."
	if m.Caption != wantCaption {
		t.Errorf("expected caption %q, got %q", wantCaption, m.Caption)
	}
	wantCombined := "[anthropic]\nGlazed by hand. #coffee #Ceramics #HANDMADE\n\n[openai]\nFresh mugs for slow mornings. #Coffee #handmade"
	if m.Combined != wantCombined {
		t.Errorf("expected combined %q, got %q", wantCombined, m.Combined)
	}
	want := model.MergeSummary{ProvidersRequested: 3, ProvidersSucceeded: 2, TokensIn: 18, TokensOut: 21, HashtagCount: 3}
	if m.Summary != want {
		t.Errorf("expected summary %+v, got %+v", want, m.Summary)
	}

	again := Merge(order, outputs, true)
	if !reflect.DeepEqual(m, again) {
		t.Error("expected merge to be deterministic")
	}

	noTags := Merge(order, outputs, false)
	if len(noTags.Hashtags) != 0 || noTags.Summary.HashtagCount != 0 {
		t.Errorf("expected no hashtags when disabled, got %v", noTags.Hashtags)
	}
	if noTags.Caption != m.Caption {
		t.Error("expected caption to be independent of the hashtag flag")
	}
}

func TestMerge_UnicodeHashtags(t *testing.T) {
	outputs := map[string]model.ProviderOutput{
		"a": {Text: "Bonne journée #Café #café_au_lait"},
		"b": {Text: "#CAFÉ #straße #STRASSE"},
	}
	m := Merge([]string{"a", "b"}, outputs, true)
	want := []string{"#Café", "#café_au_lait", "#straße"}
	if !reflect.DeepEqual(m.Hashtags, want) {
		t.Errorf("expected %v, got %v", want, m.Hashtags)
	}
}
