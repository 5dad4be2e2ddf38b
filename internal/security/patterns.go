// Package security holds the stateless detectors, validator and sanitizer that every
// untrusted text field goes through before it reaches the generator or a response.
package security

import (
	"regexp"
)

// CodeType names the kind of code a detector recognises
type CodeType string

const (
	CodePHP        CodeType = "PHP"
	CodePython     CodeType = "Python"
	CodeHTML       CodeType = "HTML"
	CodeJavaScript CodeType = "JavaScript"
	CodeGeneric    CodeType = "Code"
)

// CodeDetection is the result of running the detector set over a text
type CodeDetection struct {
	Detected bool
	Type     CodeType
}

// Detector is a named list of signatures; any single match is a hit
type Detector struct {
	Type     CodeType
	patterns []*regexp.Regexp
}

// NewDetector compiles the given expressions. It panics on an invalid expression,
// signatures are program constants.
func NewDetector(t CodeType, exprs ...string) Detector {
	d := Detector{Type: t, patterns: make([]*regexp.Regexp, 0, len(exprs))}
	for _, e := range exprs {
		d.patterns = append(d.patterns, regexp.MustCompile(e))
	}
	return d
}

// With returns a copy of the detector with extra signatures appended
func (d Detector) With(exprs ...string) Detector {
	out := Detector{Type: d.Type, patterns: append([]*regexp.Regexp(nil), d.patterns...)}
	for _, e := range exprs {
		out.patterns = append(out.patterns, regexp.MustCompile(e))
	}
	return out
}

// Match reports whether any signature fires
func (d Detector) Match(text string) bool {
	if text == "" {
		return false
	}
	for _, p := range d.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// DetectorSet evaluates detectors in order; the first hit names the type
type DetectorSet []Detector

// Detect runs the set and reports the first matching detector
func (s DetectorSet) Detect(text string) CodeDetection {
	if text == "" {
		return CodeDetection{}
	}
	for _, d := range s {
		if d.Match(text) {
			return CodeDetection{Detected: true, Type: d.Type}
		}
	}
	return CodeDetection{}
}

var (
	phpDetector = NewDetector(CodePHP,
		`(?i)<\?php`,
		`(?i)<\?=`,
		`<\?`,
		`(?i)\$[a-z_][a-z0-9_]*\s*=`,
		`(?i)getenv\s*\(`,
		`(?i)curl_init`,
		`(?i)curl_exec`,
		`(?i)curl_setopt`,
		`(?i)file_get_contents`,
		`(?i)fopen\s*\(`,
		`(?i)fwrite\s*\(`,
		`(?i)exec\s*\(`,
		`(?i)system\s*\(`,
		`(?i)shell_exec`,
		`(?i)passthru`,
		`(?i)proc_open`,
		`(?i)popen`,
		`->`,
		`::`,
		`(?i)array\s*\(`,
		`(?i)function\s+\w+\s*\(`,
	)

	pythonDetector = NewDetector(CodePython,
		`(?im)^import\s+\w+`,
		`(?im)^from\s+\w+\s+import`,
		`(?i)def\s+\w+\s*\(`,
		`(?i)class\s+\w+`,
		`(?i)__init__`,
		`(?i)if\s+__name__`,
		`(?i)print\s*\(`,
		`(?i)import\s+os`,
		`(?i)import\s+sys`,
		`(?i)import\s+subprocess`,
		`(?i)\.py$`,
	)

	htmlDetector = NewDetector(CodeHTML,
		`(?i)<!doctype\s+html`,
		`(?i)<html[\s>]`,
		`(?i)</html>`,
		`(?i)<head[\s>]`,
		`(?i)</head>`,
		`(?i)<body[\s>]`,
		`(?i)</body>`,
		`(?i)<script[\s>]`,
		`(?i)</script>`,
		`(?i)<style[\s>]`,
		`(?i)</style>`,
		`(?i)<meta[\s>]`,
		`(?i)<link[\s>]`,
		`(?i)<img[\s>]`,
		`(?i)<iframe[\s>]`,
		`(?i)<object[\s>]`,
		`(?i)<embed[\s>]`,
		`(?i)<form[\s>]`,
		`(?i)<input[\s>]`,
		`(?i)<textarea[\s>]`,
		`(?i)<button[\s>]`,
		`(?i)<div[\s>]`,
		`(?i)<span[\s>]`,
		`(?i)<p[\s>]`,
		`(?i)<a[\s>]`,
		`(?i)<h[1-6][\s>]`,
		`(?i)<ul[\s>]`,
		`(?i)<ol[\s>]`,
		`(?i)<li[\s>]`,
		`(?i)<table[\s>]`,
		`(?i)<tr[\s>]`,
		`(?i)<td[\s>]`,
		`(?i)<th[\s>]`,
		// any tag-like substring, deliberately broad
		`(?i)</?[a-z][a-z0-9]*[\s>]`,
		`(?i)&lt;[a-z]`,
		`(?i)&gt;`,
		`&#\d+;`,
		`(?i)&[a-z]+;`,
	)

	javaScriptDetector = NewDetector(CodeJavaScript,
		`(?i)javascript:`,
		`(?i)<script[\s\S]*?>`,
		`(?i)</script>`,
		`(?i)on\w+\s*=\s*["'][^"']*["']`,
		`(?i)on\w+\s*=\s*[^>\s]+`,
		`(?i)eval\s*\(`,
		`(?i)function\s*\(`,
		`(?i)document\.`,
		`(?i)window\.`,
		`(?i)\.innerHTML`,
		`(?i)\.outerHTML`,
		`(?i)\.insertAdjacentHTML`,
		`(?i)document\.write`,
		`(?i)document\.writeln`,
		`(?i)setTimeout\s*\(`,
		`(?i)setInterval\s*\(`,
		`(?i)XMLHttpRequest`,
		`(?i)fetch\s*\(`,
		`(?i)\.addEventListener`,
		`(?i)\.removeEventListener`,
		`(?i)console\.`,
		`(?i)alert\s*\(`,
		`(?i)confirm\s*\(`,
		`(?i)prompt\s*\(`,
		`(?i)location\.`,
		`(?i)history\.`,
		`(?i)localStorage\.`,
		`(?i)sessionStorage\.`,
	)

	// shell, API exfiltration and generic source-code shapes
	genericDetector = NewDetector(CodeGeneric,
		`(?i)curl\s+-X`,
		`(?i)curl_init`,
		`(?i)curl_exec`,
		`(?i)api\.openai\.com`,
		`(?i)apiKey\s*=`,
		`(?i)API_KEY`,
		`(?i)getenv\s*\(`,
		`(?i)process\.env`,
		`(?i)require\s*\(`,
		`(?i)import\s+.*from`,
		`(?i)const\s+\w+\s*=`,
		`(?i)let\s+\w+\s*=`,
		`(?i)var\s+\w+\s*=`,
		`(?i)function\s*\w*\s*\(`,
		`(?i)class\s+\w+`,
		`(?i)//.*api`,
		`(?i)/\*.*\*/`,
	)
)

// DefaultDetectors returns the detector order used by ContainsCode:
// PHP, Python, HTML, JavaScript, then the generic list.
func DefaultDetectors() DetectorSet {
	return DetectorSet{phpDetector, pythonDetector, htmlDetector, javaScriptDetector, genericDetector}
}

var defaultSet = DefaultDetectors()

// ContainsPHP reports PHP open tags, variables, process and network calls
func ContainsPHP(text string) bool { return phpDetector.Match(text) }

// ContainsPython reports Python imports, definitions and entry points
func ContainsPython(text string) bool { return pythonDetector.Match(text) }

// ContainsHTML reports any tag-like substring or HTML entity
func ContainsHTML(text string) bool { return htmlDetector.Match(text) }

// ContainsJavaScript reports script tags, event handlers and DOM or network APIs
func ContainsJavaScript(text string) bool { return javaScriptDetector.Match(text) }

// ContainsCode runs every detector in the default order
func ContainsCode(text string) CodeDetection { return defaultSet.Detect(text) }
