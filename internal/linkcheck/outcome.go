package linkcheck

import "fmt"

// Kind classifies the result of a reachability probe.
type Kind int

const (
	OK Kind = iota
	HTTPError
	Timeout
	ConnectionFailure
	// SkippedTLS marks certificate or handshake failures. They are reported
	// as "no failure": older government endpoints often serve chains that a
	// strict verifier rejects while browsers accept them.
	SkippedTLS
	// InvalidURL marks catalog values that are not probe-able http(s) URLs.
	InvalidURL
)

var kindNames = map[Kind]string{
	OK:                "ok",
	HTTPError:         "http_error",
	Timeout:           "timeout",
	ConnectionFailure: "connection_failure",
	SkippedTLS:        "skipped_tls",
	InvalidURL:        "invalid_url",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Outcome is the classified result of probing one URL.
type Outcome struct {
	Kind       Kind   `json:"kind"`
	StatusCode int    `json:"status_code,omitempty"`
	URL        string `json:"url"`
	Err        error  `json:"-"`
}

// Failed reports whether the outcome should be surfaced as a diagnostic.
func (o Outcome) Failed() bool {
	return o.Kind != OK && o.Kind != SkippedTLS
}

// Description renders a failed outcome for the report. It is empty for
// outcomes that are not failures.
func (o Outcome) Description() string {
	switch o.Kind {
	case HTTPError:
		return fmt.Sprintf("%s - HTTP ERROR %d", o.URL, o.StatusCode)
	case Timeout:
		return o.URL + " - REQUEST TIMEOUT"
	case ConnectionFailure:
		return o.URL + " - CONNECTION FAILURE"
	case InvalidURL:
		return o.URL + " - INVALID URL"
	}
	return ""
}

// UnclassifiedError wraps a probe failure that fits none of the outcome
// kinds, including cancellation by the caller. It aborts the audit run.
type UnclassifiedError struct {
	URL string
	Err error
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("linkcheck: %s: %v", e.URL, e.Err)
}

func (e *UnclassifiedError) Unwrap() error { return e.Err }
