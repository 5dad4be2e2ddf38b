package core

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	emailPattern          = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	nameAfterCallPattern  = regexp.MustCompile(`je m['’]appelle\s+([^\s,.]+(?:\s+[^\s,.]+)*)`)
	nameAfterIsPattern    = regexp.MustCompile(`mon nom est\s+([^\s,.]+(?:\s+[^\s,.]+)*)`)
	thousandsPattern      = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:k|K)`)
	currencyAmountPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:€|\$|euros?|dollars?)`)
	topicPattern          = regexp.MustCompile(`(?:sur|à propos de|concernant)\s+([^.,!?]+)`)
)

// Fallback reasoning strings
const (
	reasonDefault         = "Message de contact général"
	reasonThousands       = "Don avec montant en milliers"
	reasonCurrency        = "Don avec montant spécifié"
	reasonDonation        = "Intention de don détectée"
	reasonVolunteer       = "Intention de bénévolat détectée"
	reasonContact         = "Demande de contact détectée"
	reasonInfo            = "Demande d'information détectée"
	skillsMentioned       = "Compétences mentionnées"
	availabilityMentioned = "Disponibilités mentionnées"
	technicalProblem      = "Problème technique"
	topicMentioned        = "Sujet mentionné"
)

// fallbackState is threaded through the rule stages
type fallbackState struct {
	text      string
	mission   Mission
	reasoning string
	extracted map[string]string
}

// fallbackStage is one step of the fallback classifier
type fallbackStage struct {
	name  string
	apply func(*fallbackState)
}

// missionRule is one branch of the keyword cascade
type missionRule struct {
	mission   Mission
	keywords  []string
	reasoning string
	// orAmount also matches when an amount was already extracted
	orAmount bool
	enrich   func(*fallbackState)
}

// frequencyRule maps keywords to a normalized frequency
type frequencyRule struct {
	keywords  []string
	frequency string
}

var frequencyRules = []frequencyRule{
	{keywords: []string{"mensuel", "chaque mois", "mensuelle"}, frequency: FrequencyMonthly},
	{keywords: []string{"annuel", "chaque an"}, frequency: FrequencyYearly},
	{keywords: []string{"unique", "une fois"}, frequency: FrequencyOnce},
}

// missionCascade is evaluated top to bottom; the first matching branch wins.
var missionCascade = []missionRule{
	{
		mission:   MissionDonation,
		keywords:  []string{"don", "argent", "soutenir"},
		reasoning: reasonDonation,
		orAmount:  true,
	},
	{
		mission:   MissionVolunteer,
		keywords:  []string{"bénévole", "volontaire", "aider", "rejoindre"},
		reasoning: reasonVolunteer,
		enrich: func(s *fallbackState) {
			if containsAny(s.text, "compétence", "expérience", "développeur", "graphiste") {
				s.extracted[FieldSkills] = skillsMentioned
			}
			if containsAny(s.text, "disponible", "weekend", "soirée", "jour") {
				s.extracted[FieldAvailability] = availabilityMentioned
			}
		},
	},
	{
		mission:   MissionContact,
		keywords:  []string{"signaler", "problème", "contacter", "parler"},
		reasoning: reasonContact,
		enrich: func(s *fallbackState) {
			if containsAny(s.text, "technique", "bug", "erreur") {
				s.extracted[FieldMessage] = technicalProblem
			}
		},
	},
	{
		mission:   MissionInfo,
		keywords:  []string{"information", "question", "savoir", "renseignement"},
		reasoning: reasonInfo,
		enrich: func(s *fallbackState) {
			if !containsAny(s.text, "événement", "projet", "activité") {
				return
			}
			s.extracted[FieldTopic] = topicMentioned
			if m := topicPattern.FindStringSubmatch(s.text); m != nil && strings.TrimSpace(m[1]) != "" {
				s.extracted[FieldTopic] = strings.TrimSpace(m[1])
			}
		},
	},
}

// FallbackClassifier derives an IntentResult from keywords alone. It is used when
// the LLM is unavailable or its answer cannot be trusted.
type FallbackClassifier struct {
	stages []fallbackStage
}

// NewFallbackClassifier creates the classifier with its fixed stage order:
// email, name, amount, frequency, then the mission cascade.
func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{stages: []fallbackStage{
		{name: "email", apply: extractEmail},
		{name: "name", apply: extractName},
		{name: "amount", apply: extractAmount},
		{name: "frequency", apply: extractFrequency},
		{name: "mission", apply: applyMissionCascade},
	}}
}

// Stages returns the stage names in evaluation order
func (c *FallbackClassifier) Stages() []string {
	names := make([]string, len(c.stages))
	for i, st := range c.stages {
		names[i] = st.name
	}
	return names
}

// Classify runs every stage over the lowercased input
func (c *FallbackClassifier) Classify(input string) IntentResult {
	s := &fallbackState{
		text:      cases.Lower(language.French).String(input),
		mission:   MissionContact,
		reasoning: reasonDefault,
		extracted: make(map[string]string),
	}
	for _, st := range c.stages {
		st.apply(s)
	}

	for k, v := range s.extracted {
		if v == "" {
			delete(s.extracted, k)
		}
	}

	return IntentResult{
		Mission:    s.mission,
		Confidence: DefaultConfidence,
		Reasoning:  s.reasoning,
		Extracted:  s.extracted,
		Source:     SourceFallback,
	}
}

func extractEmail(s *fallbackState) {
	if m := emailPattern.FindString(s.text); m != "" {
		s.extracted[FieldEmail] = m
	}
}

func extractName(s *fallbackState) {
	pattern := nameAfterIsPattern
	switch {
	case strings.Contains(s.text, "je m'appelle"), strings.Contains(s.text, "je m’appelle"):
		pattern = nameAfterCallPattern
	case strings.Contains(s.text, "mon nom est"):
	default:
		return
	}
	if m := pattern.FindStringSubmatch(s.text); m != nil {
		s.extracted[FieldName] = m[1]
	}
}

func extractAmount(s *fallbackState) {
	if m := thousandsPattern.FindStringSubmatch(s.text); m != nil {
		if amount, ok := scaleAmount(m[1], 1000); ok {
			s.extracted[FieldAmount] = amount
			s.mission = MissionDonation
			s.reasoning = reasonThousands
		}
		return
	}
	if m := currencyAmountPattern.FindStringSubmatch(s.text); m != nil {
		s.extracted[FieldAmount] = strings.Replace(m[1], ",", ".", 1)
		s.mission = MissionDonation
		s.reasoning = reasonCurrency
	}
}

func extractFrequency(s *fallbackState) {
	for _, rule := range frequencyRules {
		if containsAny(s.text, rule.keywords...) {
			s.extracted[FieldFrequency] = rule.frequency
			s.mission = MissionDonation
			return
		}
	}
}

func applyMissionCascade(s *fallbackState) {
	for _, rule := range missionCascade {
		matched := containsAny(s.text, rule.keywords...) ||
			(rule.orAmount && s.extracted[FieldAmount] != "")
		if !matched {
			continue
		}
		s.mission = rule.mission
		s.reasoning = rule.reasoning
		if rule.enrich != nil {
			rule.enrich(s)
		}
		return
	}
}

// scaleAmount parses a decimal (comma or dot) and multiplies it, formatting the
// result without float noise.
func scaleAmount(number string, factor float64) (string, bool) {
	f, err := strconv.ParseFloat(strings.Replace(number, ",", ".", 1), 64)
	if err != nil {
		return "", false
	}
	scaled := math.Round(f*factor*1e6) / 1e6
	return strconv.FormatFloat(scaled, 'f', -1, 64), true
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
