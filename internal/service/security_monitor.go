package service

import (
	"github.com/stemsi/exstem-assessment/internal/model"
)

// SecurityPolicy classifies client-reported integrity events for one exam.
type SecurityPolicy struct {
	Enabled       bool
	AllowWarnings bool
	MaxViolations int
}

// PolicyFor derives the policy from the exam flags.
func PolicyFor(exam *model.Exam) SecurityPolicy {
	return SecurityPolicy{
		Enabled:       exam.BrowserSecurity,
		AllowWarnings: exam.AllowBrowserWarnings,
		MaxViolations: exam.ViolationLimit(),
	}
}

// warnable events get one warning per class before they count as violations.
var warnable = map[model.SecurityEventType]bool{
	model.EventTabBlur:        true,
	model.EventFullscreenExit: true,
	model.EventCopyAttempt:    true,
	model.EventPasteAttempt:   true,
	model.EventRightClick:     true,
	model.EventWindowResize:   true,
}

var disqualifying = map[model.SecurityEventType]bool{
	model.EventDevtoolsOpen:     true,
	model.EventScreenCapture:    true,
	model.EventMultipleDisplays: true,
}

// KnownEventType reports whether t is classified by the monitor.
func KnownEventType(t model.SecurityEventType) bool {
	return warnable[t] || disqualifying[t]
}

// Classify decides the severity of an event given the attempt's log so far.
func (p SecurityPolicy) Classify(t model.SecurityEventType, log []model.SecurityEvent) (model.Severity, error) {
	if !KnownEventType(t) {
		return "", ErrInvalidEventType
	}
	if disqualifying[t] || !p.AllowWarnings {
		return model.SeverityViolation, nil
	}
	for _, prev := range log {
		if prev.EventType == t {
			return model.SeverityViolation, nil
		}
	}
	return model.SeverityWarning, nil
}

// ThresholdReached reports whether the violation count forces a submit.
func (p SecurityPolicy) ThresholdReached(violations int) bool {
	limit := p.MaxViolations
	if limit < 1 {
		limit = 1
	}
	return violations >= limit
}
