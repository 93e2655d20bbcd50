package usecase

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"social-content-ai/internal/domain/model"
)

var hashtagRe = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

var (
	blankRunRe  = regexp.MustCompile(`[ \t]{2,}`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
)

// Merge combines per-provider outputs in declared order. It is a pure
// function: the same outputs and order always produce the same bytes.
func Merge(order []string, outputs map[string]model.ProviderOutput, includeHashtags bool) model.MergedOutput {
	folder := cases.Fold()
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	captions := make([]string, 0, len(order))
	blocks := make([]string, 0, len(order))
	sum := model.MergeSummary{ProvidersRequested: len(order)}

	for _, id := range order {
		out, ok := outputs[id]
		if !ok {
			continue
		}
		sum.TokensIn += out.TokensIn
		sum.TokensOut += out.TokensOut
		if !out.OK() {
			continue
		}
		sum.ProvidersSucceeded++

		text := strings.TrimSpace(out.Text)
		blocks = append(blocks, "["+id+"]\n"+text)

		for _, tag := range hashtagRe.FindAllString(text, -1) {
			key := folder.String(tag)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, tag)
		}
		if c := stripHashtags(text); c != "" {
			captions = append(captions, c)
		}
	}

	if !includeHashtags {
		tags = []string{}
	}
	sum.HashtagCount = len(tags)
	return model.MergedOutput{
		Caption:  strings.Join(captions, "\n\n"),
		Hashtags: tags,
		Combined: strings.Join(blocks, "\n\n"),
		Summary:  sum,
	}
}

func stripHashtags(s string) string {
	s = hashtagRe.ReplaceAllString(s, "")
	s = blankRunRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = blankLineRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
