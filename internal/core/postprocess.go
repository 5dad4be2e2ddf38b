package core

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingNumberPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	amountNoisePattern   = regexp.MustCompile(`[€$\s]`)
)

const defaultReasoning = "Intention détectée"

// postState is what the post-processing steps read and write
type postState struct {
	raw       map[string]any
	input     string
	extracted map[string]any
	result    IntentResult
}

// PostStep is one named normalization applied to an LLM answer
type PostStep struct {
	Name  string
	apply func(*postState)
}

// PostSteps is the ordered list applied by PostProcess
var PostSteps = []PostStep{
	{Name: "mission", apply: normalizeMission},
	{Name: "extracted", apply: ensureExtracted},
	{Name: "amount", apply: normalizeAmount},
	{Name: "frequency", apply: normalizeFrequency},
	{Name: "email", apply: recoverEmail},
	{Name: "strip_empty", apply: stripEmpty},
	{Name: "confidence", apply: clampConfidence},
	{Name: "reasoning", apply: defaultReasoningStep},
	{Name: "source", apply: markSource},
}

// PostProcess turns an untrusted LLM object into an IntentResult. input is the
// sanitized user text, used to recover an email the model missed. raw is not modified.
func PostProcess(raw map[string]any, input string) IntentResult {
	return runSteps(PostSteps, raw, input)
}

func runSteps(steps []PostStep, raw map[string]any, input string) IntentResult {
	s := &postState{raw: raw, input: input}
	for _, st := range steps {
		st.apply(s)
	}
	s.result.Extracted = make(map[string]string, len(s.extracted))
	for k, v := range s.extracted {
		s.result.Extracted[k] = stringify(v)
	}
	return s.result
}

func normalizeMission(s *postState) {
	m, _ := s.raw["mission"].(string)
	s.result.Mission = ParseMission(m)
}

func ensureExtracted(s *postState) {
	s.extracted = make(map[string]any)
	if ex, ok := s.raw["extracted"].(map[string]any); ok {
		for k, v := range ex {
			s.extracted[k] = v
		}
	}
}

func normalizeAmount(s *postState) {
	v, ok := s.extracted[FieldAmount]
	if !ok || !truthy(v) {
		return
	}
	amount := stringify(v)

	if strings.Contains(strings.ToLower(amount), "k") && !strings.Contains(amount, "000") {
		if m := leadingNumberPattern.FindStringSubmatch(amount); m != nil {
			if scaled, ok := scaleAmount(m[1], 1000); ok {
				amount = scaled
			}
		}
	}

	amount = amountNoisePattern.ReplaceAllString(amount, "")
	s.extracted[FieldAmount] = strings.Replace(amount, ",", ".", 1)
}

func normalizeFrequency(s *postState) {
	v, ok := s.extracted[FieldFrequency]
	if !ok || !truthy(v) {
		return
	}
	freq := strings.ToLower(stringify(v))

	switch {
	case strings.Contains(freq, "mensuel"), strings.Contains(freq, "mois"):
		s.extracted[FieldFrequency] = FrequencyMonthly
	case strings.Contains(freq, "annuel"), strings.Contains(freq, "an"):
		s.extracted[FieldFrequency] = FrequencyYearly
	case strings.Contains(freq, "unique"), strings.Contains(freq, "une fois"):
		s.extracted[FieldFrequency] = FrequencyOnce
	}
}

func recoverEmail(s *postState) {
	if v, ok := s.extracted[FieldEmail]; ok && truthy(v) {
		return
	}
	if m := emailPattern.FindString(s.input); m != "" {
		s.extracted[FieldEmail] = m
	}
}

func stripEmpty(s *postState) {
	for k, v := range s.extracted {
		if v == nil {
			delete(s.extracted, k)
			continue
		}
		if str, ok := v.(string); ok && (str == "" || str == "null") {
			delete(s.extracted, k)
		}
	}
}

func clampConfidence(s *postState) {
	c := toNumber(s.raw["confidence"])
	if c == 0 || math.IsNaN(c) {
		c = DefaultConfidence
	}
	s.result.Confidence = math.Min(1, math.Max(0.1, c))
}

func defaultReasoningStep(s *postState) {
	if r, ok := s.raw["reasoning"].(string); ok && r != "" {
		s.result.Reasoning = r
		return
	}
	s.result.Reasoning = defaultReasoning
}

func markSource(s *postState) {
	s.result.Source = SourceAI
}

// toNumber converts a JSON value the way a lenient numeric cast would; NaN means unusable
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		t := strings.TrimSpace(n)
		if t == "" {
			return 0
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	case bool:
		return val
	default:
		return true
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
