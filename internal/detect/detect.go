// Package detect resolves raw solution and test text to one of the supported
// languages. Three signals are tried in priority order: a fenced code block
// tag, a LANG header comment, and a keyword heuristic. The language found in
// the tests wins over the one found in the solution, since the tests decide
// which harness has to run.
package detect

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tasklab/autograder/api"
)

var (
	jsFenceTags     = mapset.NewSet("js", "javascript", "node", "nodejs")
	pythonFenceTags = mapset.NewSet("py", "python")
	ocamlFenceTags  = mapset.NewSet("ml", "ocaml")
)

var fenceRe = regexp.MustCompile("(?m)^\\s*```([A-Za-z0-9]+)")

// Header comments carrying the literal text "LANG: <lang>", one pattern per
// native comment syntax.
var langHeaderRes = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*//\s*LANG:\s*([A-Za-z]+)`),
	regexp.MustCompile(`(?m)^\s*#\s*LANG:\s*([A-Za-z]+)`),
	regexp.MustCompile(`(?m)^\s*\(\*\s*LANG:\s*([A-Za-z]+)`),
}

// Detect resolves the language for a request. Tests take precedence over the
// solution; if neither yields a language, ok is false.
func Detect(solution, tests string) (lang api.Language, ok bool) {
	if l, found := detectOne(tests); found {
		return l, true
	}
	if l, found := detectOne(solution); found {
		return l, true
	}
	return "", false
}

func detectOne(text string) (api.Language, bool) {
	if l, ok := fromFence(text); ok {
		return l, true
	}
	if l, ok := fromHeaderComment(text); ok {
		return l, true
	}
	return fromKeywords(text)
}

func fromFence(text string) (api.Language, bool) {
	m := fenceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return tagToLanguage(m[1])
}

func fromHeaderComment(text string) (api.Language, bool) {
	for _, re := range langHeaderRes {
		if m := re.FindStringSubmatch(text); m != nil {
			if l, ok := tagToLanguage(m[1]); ok {
				return l, true
			}
		}
	}
	return "", false
}

func tagToLanguage(tag string) (api.Language, bool) {
	tag = strings.ToLower(tag)
	switch {
	case jsFenceTags.Contains(tag):
		return api.LangJS, true
	case pythonFenceTags.Contains(tag):
		return api.LangPython, true
	case ocamlFenceTags.Contains(tag):
		return api.LangOCaml, true
	}
	return "", false
}

// Syntax fragments distinctive enough to not collide across the three
// languages. Each hit counts once; the language with the most distinct hits
// wins, ties resolve to no detection.
var keywordSignals = map[api.Language][]*regexp.Regexp{
	api.LangJS: {
		regexp.MustCompile(`module\.exports\s*=`),
		regexp.MustCompile(`\bexports\.[A-Za-z_$]`),
		regexp.MustCompile(`\brequire\s*\(\s*['"]`),
		regexp.MustCompile(`\bconsole\.log\s*\(`),
		regexp.MustCompile(`\b(?:const|let)\s+\w+\s*=\s*\(?[\w\s,]*\)?\s*=>`),
		regexp.MustCompile(`\bdescribe\s*\(\s*['"]`),
	},
	api.LangPython: {
		regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(.*\)\s*:`),
		regexp.MustCompile(`(?m)^\s*class\s+\w+.*:\s*$`),
		regexp.MustCompile(`\bimport\s+unittest\b`),
		regexp.MustCompile(`\bself\.assert\w+\(`),
		regexp.MustCompile(`(?m)^\s*from\s+\w+\s+import\s+`),
		regexp.MustCompile(`\bprint\s*\(`),
	},
	api.LangOCaml: {
		regexp.MustCompile(`\blet\s+\w+\s*=`),
		regexp.MustCompile(`(?m)^\s*open\s+[A-Z]\w*`),
		regexp.MustCompile(`\blet\s+\(\)\s*=`),
		regexp.MustCompile(`;;\s*$`),
		regexp.MustCompile(`\bassert_equal\b`),
		regexp.MustCompile(`\bmatch\s+\w+\s+with\b`),
	},
}

func fromKeywords(text string) (api.Language, bool) {
	scores := map[api.Language]int{}
	for lang, res := range keywordSignals {
		for _, re := range res {
			if re.MatchString(text) {
				scores[lang]++
			}
		}
	}

	best, bestScore, tied := api.Language(""), 0, false
	for lang, score := range scores {
		switch {
		case score > bestScore:
			best, bestScore, tied = lang, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return "", false
	}
	return best, true
}
