package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackDonationScenario(t *testing.T) {
	r := NewFallbackClassifier().Classify("Je veux faire un don mensuel de 50€, je m'appelle Marie")

	assert.Equal(t, MissionDonation, r.Mission)
	assert.Equal(t, FrequencyMonthly, r.Extracted[FieldFrequency])
	assert.Equal(t, "50", r.Extracted[FieldAmount])
	assert.Contains(t, r.Extracted[FieldName], "marie")
	assert.Equal(t, SourceFallback, r.Source)
	assert.Equal(t, DefaultConfidence, r.Confidence)
	assert.Equal(t, reasonDonation, r.Reasoning)
}

func TestFallbackSignalIsContactNotInfo(t *testing.T) {
	r := NewFallbackClassifier().Classify("J'ai un problème technique à signaler")

	assert.Equal(t, MissionContact, r.Mission)
	assert.Equal(t, technicalProblem, r.Extracted[FieldMessage])
	assert.Equal(t, reasonContact, r.Reasoning)
}

func TestFallbackAmounts(t *testing.T) {
	c := NewFallbackClassifier()
	cases := map[string]string{
		"50k":               "50000",
		"je donne 2.5k":     "2500",
		"2,5K pour vous":    "2500",
		"1.1k":              "1100",
		"50€":               "50",
		"12,50 euros":       "12.50",
		"100 dollars":       "100",
		"un chèque de 30 $": "30",
	}
	for in, want := range cases {
		r := c.Classify(in)
		assert.Equal(t, want, r.Extracted[FieldAmount], in)
		assert.Equal(t, MissionDonation, r.Mission, in)
	}
}

func TestFallbackFrequencies(t *testing.T) {
	c := NewFallbackClassifier()
	cases := map[string]string{
		"un don mensuel":      FrequencyMonthly,
		"un don chaque mois":  FrequencyMonthly,
		"une aide mensuelle":  FrequencyMonthly,
		"un don annuel":       FrequencyYearly,
		"un don chaque année": FrequencyYearly,
		"un don unique":       FrequencyOnce,
		"donner une fois":     FrequencyOnce,
	}
	for in, want := range cases {
		assert.Equal(t, want, c.Classify(in).Extracted[FieldFrequency], in)
	}
}

func TestFallbackFrequencyAloneKeepsDefaultReasoning(t *testing.T) {
	r := NewFallbackClassifier().Classify("Chaque mois si possible")

	assert.Equal(t, MissionDonation, r.Mission)
	assert.Equal(t, reasonDefault, r.Reasoning)
}

func TestFallbackKeywordCascadeOverridesFrequency(t *testing.T) {
	r := NewFallbackClassifier().Classify("Je veux aider chaque mois")

	assert.Equal(t, MissionVolunteer, r.Mission)
	assert.Equal(t, FrequencyMonthly, r.Extracted[FieldFrequency])
}

func TestFallbackAmountBeatsVolunteerKeywords(t *testing.T) {
	r := NewFallbackClassifier().Classify("Je veux aider avec 20€")

	assert.Equal(t, MissionDonation, r.Mission)
	assert.Equal(t, "20", r.Extracted[FieldAmount])
}

func TestFallbackVolunteer(t *testing.T) {
	r := NewFallbackClassifier().Classify("Je voudrais devenir bénévole le weekend, je suis développeur")

	assert.Equal(t, MissionVolunteer, r.Mission)
	assert.Equal(t, skillsMentioned, r.Extracted[FieldSkills])
	assert.Equal(t, availabilityMentioned, r.Extracted[FieldAvailability])

	plain := NewFallbackClassifier().Classify("Comment rejoindre l'équipe")
	assert.Equal(t, MissionVolunteer, plain.Mission)
	assert.NotContains(t, plain.Extracted, FieldSkills)
}

func TestFallbackInfoTopic(t *testing.T) {
	c := NewFallbackClassifier()

	r := c.Classify("J'ai une question sur le projet de jardin partagé. Merci")
	assert.Equal(t, MissionInfo, r.Mission)
	assert.Equal(t, "le projet de jardin partagé", r.Extracted[FieldTopic])

	r = c.Classify("Une question: quel projet en cours")
	assert.Equal(t, MissionInfo, r.Mission)
	assert.Equal(t, topicMentioned, r.Extracted[FieldTopic])

	r = c.Classify("Une question rapide")
	assert.Equal(t, MissionInfo, r.Mission)
	assert.Empty(t, r.Extracted)
}

func TestFallbackDefault(t *testing.T) {
	r := NewFallbackClassifier().Classify("Bonjour à toute l'équipe")

	assert.Equal(t, MissionContact, r.Mission)
	assert.Equal(t, reasonDefault, r.Reasoning)
	assert.NotNil(t, r.Extracted)
	assert.Empty(t, r.Extracted)
}

func TestFallbackExtractsEmailAndName(t *testing.T) {
	r := NewFallbackClassifier().Classify("Mon nom est Jean Dupont, écrivez à Jean.Dupont@Example.org")

	assert.Equal(t, "jean.dupont@example.org", r.Extracted[FieldEmail])
	assert.Equal(t, "jean dupont", r.Extracted[FieldName])

	r = NewFallbackClassifier().Classify("Bonjour, je m’appelle Léa")
	assert.Equal(t, "léa", r.Extracted[FieldName])
}

func TestFallbackStageOrder(t *testing.T) {
	assert.Equal(t, []string{"email", "name", "amount", "frequency", "mission"}, NewFallbackClassifier().Stages())
}
