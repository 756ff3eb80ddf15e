package mirror

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network, DNS, TLS and non-200 failures. Never retried.
	ErrTransport = errors.New("transport failure")
	// ErrStructuralMismatch means an expected landmark element was not on the page,
	// i.e. the site layout changed or the page is not what we asked for.
	ErrStructuralMismatch = errors.New("page structure mismatch")
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageBootstrap           Stage = "bootstrap"
	StageListing             Stage = "listing"
	StageVariants            Stage = "variants"
	StageResolveVariant      Stage = "resolve-variant"
	StageResolveInterstitial Stage = "resolve-interstitial"
)

// SiteError carries where a pipeline step failed and what it was looking for.
// Kind is ErrTransport or ErrStructuralMismatch.
type SiteError struct {
	Kind     error
	Stage    Stage
	Landmark string
	URL      string
	Err      error
}

func (e *SiteError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Landmark != "" {
		msg += fmt.Sprintf(" (expected %s)", e.Landmark)
	}
	if e.URL != "" {
		msg += " at " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SiteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func transportError(stage Stage, url string, err error) *SiteError {
	return &SiteError{Kind: ErrTransport, Stage: stage, URL: url, Err: err}
}

func mismatchError(stage Stage, landmark, url string) *SiteError {
	return &SiteError{Kind: ErrStructuralMismatch, Stage: stage, Landmark: landmark, URL: url}
}

// IsSiteChange reports whether err means the site markup no longer matches.
func IsSiteChange(err error) bool {
	return errors.Is(err, ErrStructuralMismatch)
}
