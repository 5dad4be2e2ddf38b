package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Generation settings per operation
const (
	intentTemperature  = 0.1
	intentMaxTokens    = 300
	improveTemperature = 0.7
	improveMaxTokens   = 300
	summaryTemperature = 0.8
	summaryMaxTokens   = 150
)

// DefaultUserName is used in thank-you messages when no name is given
const DefaultUserName = "Voyageur du Nexus"

const intentSystemPrompt = `Tu es un assistant qui analyse l'intention d'un utilisateur pour une association.
Ta mission: détecter la catégorie et extraire les informations pertinentes.

CATÉGORIES:
1. "donation": DON, ARGENT, EURO, €, SOUTENIR, FINANCIER, CONTRIBUTION
2. "volunteer": BÉNÉVOLE, VOLONTAIRE, AIDER, IMPLIQUER, REJOINDRE, PARTICIPER, AIDE
3. "contact": CONTACTER, PARLER, SIGNALER, PROBLÈME, DIRE, ADRESSER, ÉCRIRE
4. "info": INFORMATION, QUESTION, SAVOIR, DEMANDER, RENSEIGNEMENT, PLUS D'INFOS

EXTRACTION:
- "name": après "je m'appelle", "mon nom est", "nom:", "prénom:"
- "email": toute adresse contenant "@"
- "amount": nombre suivi de €, $, euros, dollars ou "k" (ex: "50k" → "50000")
- "frequency": "mensuel"/"chaque mois" → "monthly", "annuel" → "yearly", "unique" → "once"
- "skills": compétences mentionnées (développeur, graphiste, etc.)
- "availability": disponibilités mentionnées
- "message": texte après "pour", "concernant", "au sujet de"
- "topic": sujet après "sur", "à propos de", "concernant"

"J'ai un problème technique à signaler" est un CONTACT, pas une INFO: "signaler" = contact.

Réponds UNIQUEMENT en JSON valide:
{
  "mission": "donation" | "volunteer" | "contact" | "info",
  "confidence": 0.95,
  "reasoning": "Courte explication en français",
  "extracted": {
    "name": "string" | null,
    "email": "string" | null,
    "amount": "string" | null,
    "frequency": "string" | null,
    "skills": "string" | null,
    "availability": "string" | null,
    "message": "string" | null,
    "topic": "string" | null
  }
}`

// IntentPrompt builds the classification request for sanitized user text
func IntentPrompt(input string) Prompt {
	return Prompt{
		System:      intentSystemPrompt,
		User:        input,
		Temperature: intentTemperature,
		MaxTokens:   intentMaxTokens,
	}
}

var improveTemplates = map[ImproveAction]string{
	ActionImprove: `Améliore ce texte pour un formulaire %[3]s (champ: %[2]s).
Rends-le plus professionnel, clair et impactant.
Garde le sens original.
Texte à améliorer: "%[1]s"
Réponds uniquement avec le texte amélioré, sans commentaires.`,
	ActionRephrase: `Reformule ce texte d'une manière différente pour un formulaire %[3]s (champ: %[2]s).
Garde exactement le même sens mais utilise des mots différents.
Ne change pas les informations factuelles.
Texte à reformuler: "%[1]s"
Réponds uniquement avec le texte reformulé.`,
	ActionCorrect: `Corrige les fautes d'orthographe, de grammaire et de syntaxe dans ce texte pour un formulaire %[3]s (champ: %[2]s).
Garde le style et le ton d'origine.
Ne change pas le sens.
Texte à corriger: "%[1]s"
Réponds uniquement avec le texte corrigé.`,
}

// ImprovePrompt builds the rewrite request; ok is false for an unknown action
func ImprovePrompt(action ImproveAction, text, field, mission string) (Prompt, bool) {
	tmpl, ok := improveTemplates[action]
	if !ok {
		return Prompt{}, false
	}
	return Prompt{
		System:      fmt.Sprintf(tmpl, text, field, mission),
		User:        "Améliore ce texte s'il te plaît.",
		Temperature: improveTemperature,
		MaxTokens:   improveMaxTokens,
	}, true
}

var missionTitles = map[Mission]string{
	MissionDonation:  "Offrir un Don",
	MissionVolunteer: "Rejoindre la Guilde des Bénévoles",
	MissionContact:   "Établir le Contact",
	MissionInfo:      "Demander des Informations",
}

var nirdDomainLabels = map[string]string{
	"education-numerique": "éducation numérique",
	"inclusion-digitale":  "inclusion digitale",
	"ecologie-numerique":  "écologie numérique",
}

// MissionTitle returns the display title of a mission, or the raw value when unknown
func MissionTitle(mission string) string {
	if t, ok := missionTitles[Mission(mission)]; ok {
		return t
	}
	return mission
}

// summaryContext is everything the thank-you prompt needs
type summaryContext struct {
	mission  string
	intent   string
	userName string
	year     int
	formData map[string]any
}

// summaryPrompt builds the thank-you request from already sanitized data
func summaryPrompt(c summaryContext) Prompt {
	intent := c.intent
	if intent == "" {
		intent = "Non spécifiée"
	}

	var domain string
	if d, ok := c.formData["nirdDomain"].(string); ok {
		domain = nirdDomainLabels[d]
	}

	data, err := json.MarshalIndent(c.formData, "", "  ")
	if err != nil {
		data = []byte("{}")
	}

	var b strings.Builder
	b.WriteString(`Tu es un esprit numérique bienveillant du "Nexus" qui promeut le NIRD (Numérique Inclusif, Responsable et Durable).
Génère un message court, chaleureux et personnalisé pour remercier un utilisateur.

CONTEXTE:
`)
	fmt.Fprintf(&b, "- Mission: %s\n", MissionTitle(c.mission))
	fmt.Fprintf(&b, "- Année: %d\n", c.year)
	fmt.Fprintf(&b, "- Intentions utilisateur: %q\n", intent)
	fmt.Fprintf(&b, "- Nom: %s\n", c.userName)
	if domain != "" {
		fmt.Fprintf(&b, "- Domaine NIRD: %s\n", domain)
	}
	fmt.Fprintf(&b, "\nDONNÉES:\n%s\n\n", data)
	fmt.Fprintf(&b, `RÈGLES:
1. Mentionne le nom si disponible
2. Référence la mission spécifique
3. Mentionne l'année %[1]d
4. Intègre le thème NIRD (Numérique Inclusif, Responsable et Durable)
5. Si un domaine NIRD est spécifié, mentionne-le
6. Garde le message entre 20 et 30 mots
7. Ton chaleureux et reconnaissant
8. Termine par un appel à rester connecté tout au long de l'année %[1]d
9. Utilise des emojis appropriés (🏆, 🌱, etc.)

Exemple: "Un immense merci, Marie ! 🏆 Ton don en %[1]d renforce l'éducation numérique inclusive 🌱. Reste connectée pour suivre nos projets tout au long de l'année %[1]d !"

Réponds UNIQUEMENT avec le message final, sans guillemets.`, c.year)

	return Prompt{
		System:      b.String(),
		User:        "Génère le message de confirmation.",
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	}
}
