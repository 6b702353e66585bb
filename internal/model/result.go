package model

import "time"

// Evidence is one structured provenance citation attached to a provider
// result. Ref points at the source artifact (URL, query, job ID) so the
// aggregate record stays machine-inspectable.
type Evidence struct {
	Source string `json:"source"`
	Ref    string `json:"ref,omitempty"`
	Note   string `json:"note,omitempty"`
}

// Result is a provider-attributed value with a provenance trail. It is
// immutable once constructed. An absent result always carries confidence 0;
// fetch failures never surface as errors past the provider boundary, only as
// absent results with an explanatory note.
type Result[T any] struct {
	Value       T          `json:"value"`
	Present     bool       `json:"present"`
	Provider    string     `json:"provider"`
	RetrievedAt time.Time  `json:"retrieved_at"`
	Confidence  float64    `json:"confidence"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// Found constructs a present result. Confidence reflects provenance:
// authoritative API responses carry 1.0, scraped or derived values less.
func Found[T any](providerName string, value T, confidence float64, evidence ...Evidence) Result[T] {
	return Result[T]{
		Value:       value,
		Present:     true,
		Provider:    providerName,
		RetrievedAt: time.Now().UTC(),
		Confidence:  confidence,
		Evidence:    evidence,
	}
}

// Absent constructs an empty result with confidence 0. The note explains why
// the value is missing ("no match in graph", "circuit breaker open", ...).
func Absent[T any](providerName, note string) Result[T] {
	r := Result[T]{
		Provider:    providerName,
		RetrievedAt: time.Now().UTC(),
	}
	if note != "" {
		r.Evidence = []Evidence{{Source: providerName, Note: note}}
	}
	return r
}

// AbsentNote returns the note of the first evidence entry, or "".
func (r Result[T]) AbsentNote() string {
	if r.Present || len(r.Evidence) == 0 {
		return ""
	}
	return r.Evidence[0].Note
}
