package generic

import "errors"

// =============================================================================
// OUTCOME - Closed set of results returned across public boundaries
// =============================================================================

// Kind identifies an outcome for callers. Key is the stable translation key
// used by presentation layers; Message is the default English text. A Kind
// with an empty Message uses the outcome's Detail as its message.
type Kind struct {
	Key     string
	Message string
}

// Outcome is one of Accept, HardReject, SoftReject or NotFound.
type Outcome interface {
	Success() bool
	RequiresConfirmation() bool
	TranslationKey() string
	Envelope() Envelope
	outcome()
}

// Envelope is the caller-facing shape of every outcome.
type Envelope struct {
	Success        bool   `json:"success"`
	Dialogue       bool   `json:"dialogue"`
	Message        string `json:"message,omitempty"`
	TranslationKey string `json:"translation_key,omitempty"`
	APIError       string `json:"api_error,omitempty"`
}

// Accept means the request passed every check.
type Accept struct {
	Kind Kind
}

// HardReject is final: structural, date or upstream errors.
type HardReject struct {
	Kind   Kind
	Detail string
}

// SoftReject can be overridden by resubmitting with explicit confirmation.
type SoftReject struct {
	Kind   Kind
	Detail string
}

// NotFound reports a missing pool, rule set or record.
type NotFound struct {
	Kind Kind
}

func (Accept) outcome()     {}
func (HardReject) outcome() {}
func (SoftReject) outcome() {}
func (NotFound) outcome()   {}

func (Accept) Success() bool     { return true }
func (HardReject) Success() bool { return false }
func (SoftReject) Success() bool { return false }
func (NotFound) Success() bool   { return false }

func (Accept) RequiresConfirmation() bool     { return false }
func (HardReject) RequiresConfirmation() bool { return false }
func (SoftReject) RequiresConfirmation() bool { return true }
func (NotFound) RequiresConfirmation() bool   { return false }

func (o Accept) TranslationKey() string     { return o.Kind.Key }
func (o HardReject) TranslationKey() string { return o.Kind.Key }
func (o SoftReject) TranslationKey() string { return o.Kind.Key }
func (o NotFound) TranslationKey() string   { return o.Kind.Key }

func (o Accept) Envelope() Envelope {
	return Envelope{Success: true, Message: o.Kind.Message, TranslationKey: o.Kind.Key}
}

func (o HardReject) Envelope() Envelope {
	return failure(o.Kind, o.Detail, false)
}

func (o SoftReject) Envelope() Envelope {
	return failure(o.Kind, o.Detail, true)
}

func (o NotFound) Envelope() Envelope {
	return failure(o.Kind, "", false)
}

func failure(kind Kind, detail string, dialogue bool) Envelope {
	env := Envelope{Dialogue: dialogue, TranslationKey: kind.Key}
	switch {
	case kind.Message == "":
		env.Message = detail
	default:
		env.Message = kind.Message
		env.APIError = detail
	}
	return env
}

// =============================================================================
// ENGINE KINDS
// =============================================================================

var (
	KindInvalidDateFormat = Kind{Key: "INVALID_DATE_FORMAT", Message: "Invalid date format. Expected YYYY-MM-DD."}
	KindStartAfterEnd     = Kind{Key: "START_DATE_GREATER_THAN_END_DATE", Message: "Start date cannot be greater than end date."}
	KindPastDate          = Kind{Key: "PAST_DATE_ERROR", Message: "Dates in the past are not allowed"}
	KindDateValidation    = Kind{Key: "DATE_VALIDATION", Message: "Start date cannot be after end date"}
	KindInvalidRequest    = Kind{Key: "VALIDATION_ERROR", Message: "Invalid request."}
	KindNoRulesFound      = Kind{Key: "NO_RULES_FOUND", Message: "No rules found."}
	KindPoolNotFound      = Kind{Key: "POOL_NOT_FOUND", Message: "Pool not found."}
	KindUniquePoolName    = Kind{Key: "UNIQUE_POOL_NAME", Message: "Pool name must be unique."}
	KindUpstream          = Kind{Key: "BOOKING_SERVICE_UNAVAILABLE", Message: "Unable to verify existing bookings."}
	KindInternal          = Kind{Key: "INTERNAL_SERVER_ERROR"}
)

// OutcomeFromError maps engine errors to outcomes. Unknown errors become an
// internal HardReject carrying the original text.
func OutcomeFromError(err error) Outcome {
	if err == nil {
		return Accept{}
	}
	switch {
	case errors.Is(err, ErrInvalidDateFormat):
		return HardReject{Kind: KindInvalidDateFormat, Detail: err.Error()}
	case errors.Is(err, ErrInvalidRange):
		return HardReject{Kind: KindStartAfterEnd}
	case errors.Is(err, ErrPastDate):
		return HardReject{Kind: KindPastDate}
	case errors.Is(err, ErrDateValidation):
		return HardReject{Kind: KindDateValidation}
	case errors.Is(err, ErrInvalidRequest):
		return HardReject{Kind: KindInvalidRequest, Detail: err.Error()}
	case errors.Is(err, ErrDuplicatePoolName):
		return HardReject{Kind: KindUniquePoolName}
	case errors.Is(err, ErrNoRulesFound):
		return NotFound{Kind: KindNoRulesFound}
	case errors.Is(err, ErrPoolNotFound):
		return NotFound{Kind: KindPoolNotFound}
	case errors.Is(err, ErrUpstream):
		return HardReject{Kind: KindUpstream, Detail: err.Error()}
	default:
		return HardReject{Kind: KindInternal, Detail: err.Error()}
	}
}

// IsInternal reports whether o is the normalized form of an unexpected fault.
func IsInternal(o Outcome) bool {
	hr, ok := o.(HardReject)
	return ok && (hr.Kind == KindInternal || hr.Kind == KindUpstream)
}
