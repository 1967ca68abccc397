// Package persona holds the conversational behavior profiles ("robots") and
// their runtime overrides. Built-in definitions are immutable; an override
// record may shadow individual fields but never removes a persona.
package persona

import (
	"time"

	"github.com/kottzoltan/aivio/pkg/constants"
)

// Persona is one resolved behavior profile.
type Persona struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Intro       string `json:"intro"`
	Instruction string `json:"systemPrompt"`
	Style       string `json:"styleGuide,omitempty"`
	Script      string `json:"script,omitempty"`
	Knowledge   string `json:"knowledgeBase,omitempty"`
}

// Summary is the client-enumeration view of a persona.
type Summary struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Intro string `json:"intro"`
}

// OverrideRecord carries per-persona field replacements. Empty fields mean
// "keep the built-in value".
type OverrideRecord struct {
	Title       string    `json:"title,omitempty"`
	Intro       string    `json:"intro,omitempty"`
	Instruction string    `json:"systemPrompt,omitempty"`
	Style       string    `json:"styleGuide,omitempty"`
	Script      string    `json:"script,omitempty"`
	Knowledge   string    `json:"knowledgeBase,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// BuiltIns returns the built-in personas in registry order. Every field the
// resolver guarantees non-empty is non-empty here.
func BuiltIns() []Persona {
	return []Persona{
		{
			Key:         constants.PERSONA_OUTBOUND_SALES,
			Title:       "Adél – kimenő sales",
			Intro:       "Jó napot kívánok, Adél vagyok az AIVIO-tól. Miben segíthetek ma?",
			Instruction: "Te Adél vagy, kimenő telefonos sales ügynök. Határozott, barátságos, proaktív. Rövid, beszédre optimalizált mondatok. Kérdezz vissza.",
		},
		{
			Key:         constants.PERSONA_EMAIL_SALES,
			Title:       "Ricsi – email sales",
			Intro:       "Üdvözlöm, Ricsi vagyok. Nézzük át együtt az ajánlatot!",
			Instruction: "Te Ricsi vagy, email sales ügynök. Strukturált, precíz, okos. Röviden fogalmazol, lépéseket javasolsz, kérdezel vissza.",
		},
		{
			Key:         constants.PERSONA_SUPPORT,
			Title:       "Ari – bejövő ügyfélszolgálat",
			Intro:       "Üdvözlöm, Ari vagyok az ügyfélszolgálattól. Hallgatom!",
			Instruction: "Te Ari vagy, bejövő ügyfélszolgálati asszisztens. Empatikus, nyugodt, segítőkész. Rövid válaszok, tisztázó kérdések.",
		},
		{
			Key:         constants.PERSONA_DATA_INTAKE,
			Title:       "Mihály – adatbekérő robot",
			Intro:       "Jó napot! Mihály vagyok, néhány adatot szeretnék egyeztetni.",
			Instruction: "Te Mihály vagy, adatbekérő robot. Tárgyilagos, lényegre törő. Egy kérdés egyszerre. Rövid válaszok. Adatokat pontosítasz, időpontokat egyeztetsz.",
		},
		{
			Key:         constants.PERSONA_SURVEY,
			Title:       "Sára – elégedettségi felmérés",
			Intro:       "Üdvözlöm! Egy rövid elégedettségi felméréshez kérném a segítségét.",
			Instruction: "Te Sára vagy, elégedettségi felmérést végző asszisztens. Udvarias, semleges. Kérj 1-től 5-ig terjedő értékelést, és köszönd meg a választ.",
		},
		{
			Key:         constants.PERSONA_DEMO,
			Title:       "AIVIO demo asszisztens",
			Intro:       "Szia! Az AIVIO demo asszisztense vagyok. Kérdezz bátran!",
			Instruction: "Te az AIVIO általános demo asszisztense vagy. Barátságos, rövid, természetes magyar beszéd. Kérdezz vissza.",
		},
	}
}

// merge applies override fields over the built-in definition. An override
// field wins only when non-empty.
func merge(base Persona, o OverrideRecord) Persona {
	if o.Title != "" {
		base.Title = o.Title
	}
	if o.Intro != "" {
		base.Intro = o.Intro
	}
	if o.Instruction != "" {
		base.Instruction = o.Instruction
	}
	if o.Style != "" {
		base.Style = o.Style
	}
	if o.Script != "" {
		base.Script = o.Script
	}
	if o.Knowledge != "" {
		base.Knowledge = o.Knowledge
	}
	return base
}
