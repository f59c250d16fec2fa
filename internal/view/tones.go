package view

import "carewatch.dev/carewatch/internal/model"

// Tone is a presentation category resolved from an enumerated mapping.
// Unknown inputs always fall back to ToneNeutral; tones are never built by
// concatenating free-form data into style strings.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneGood    Tone = "good"
	ToneWarn    Tone = "warn"
	ToneBad     Tone = "bad"
	ToneMuted   Tone = "muted"
)

var typeTones = map[string]Tone{
	model.TypeInactivity:    ToneWarn,
	model.TypeDwellCritical: ToneBad,
	model.TypeNoHeartbeat:   ToneBad,
	model.TypeTestAlert:     ToneMuted,
}

// TypeTone maps an alert type to its display tone.
func TypeTone(alertType string) Tone {
	if t, ok := typeTones[alertType]; ok {
		return t
	}
	return ToneNeutral
}

var severityTones = map[string]Tone{
	model.SeverityHigh:   ToneBad,
	model.SeverityMedium: ToneWarn,
	model.SeverityLow:    ToneNeutral,
}

// SeverityTone maps an alert severity to its display tone.
func SeverityTone(severity string) Tone {
	if t, ok := severityTones[severity]; ok {
		return t
	}
	return ToneNeutral
}

// StatusTone maps an alert status to its display tone.
func StatusTone(status string) Tone {
	if status == model.StatusOpen {
		return ToneBad
	}
	return ToneGood
}
