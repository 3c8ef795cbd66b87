package detector

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// suspiciousKeywords are name fragments associated with cheating, overlay,
// injection, and automation tooling. A name hit here routes the process to
// the full (expensive) window-registry analysis.
var suspiciousKeywords = []string{
	"cheat",
	"cluely",
	"interview",
	"copilot",
	"autopilot",
	"overlay",
	"inject",
	"hook",
	"stealth",
	"invisible",
	"undetect",
	"teleprompt",
	"answer",
	"solver",
	"gpt",
	"claude",
	"openai",
	"gemini",
	"llm",
	"assist",
}

// coreOSProcesses are never scanned by the advanced heuristics. Exact match
// only: substring matching here would under-scan lookalike names.
var coreOSProcesses = map[string]struct{}{
	"kernel_task": {},
	"launchd":     {},
}

type keywordMatcher struct {
	terms   []string
	matcher *ahocorasick.Matcher
}

func newKeywordMatcher(terms []string) *keywordMatcher {
	return &keywordMatcher{
		terms:   terms,
		matcher: ahocorasick.NewStringMatcher(terms),
	}
}

// Hits returns the keywords contained in the lowercase name, in term order.
func (k *keywordMatcher) Hits(lowerName string) []string {
	indices := k.matcher.MatchThreadSafe([]byte(lowerName))
	if len(indices) == 0 {
		return nil
	}
	hits := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(k.terms) {
			continue
		}
		hits = append(hits, k.terms[idx])
	}
	return hits
}

func isCoreOSProcess(name string) bool {
	_, ok := coreOSProcesses[strings.ToLower(name)]
	return ok
}
