package engine

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

// Mapping directory layout.
const (
	MappingsDirName = "mappings"
	FilesDirName    = "__files"
)

const (
	// DefaultProxyTimeout bounds each forwarded request.
	DefaultProxyTimeout = 30 * time.Second

	// DefaultMaxBodySize is the maximum request or response body captured (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024
)

var (
	// ErrAlreadyRunning is returned when Start is called on a running engine.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNotRunning is returned when an operation needs a listening engine.
	ErrNotRunning = errors.New("engine not running")

	// ErrInvalidPattern is returned for ignore patterns that cannot be compiled.
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrInvalidTarget is returned when a proxy target is not an absolute URL.
	ErrInvalidTarget = errors.New("invalid proxy target")

	// ErrInvalidStub is returned for mapping files that fail validation.
	ErrInvalidStub = errors.New("invalid stub mapping")
)

// Stub is one persisted request/response pair.
type Stub struct {
	ID       string       `json:"id"`
	Name     string       `json:"name,omitempty"`
	Request  StubRequest  `json:"request"`
	Response StubResponse `json:"response"`

	// Payload is the response body kept outside the mapping file. When
	// Response.BodyFileName is set it is written to (or was read from) the
	// payload directory.
	Payload []byte `json:"-"`

	rules []ignoreRule
}

// StubRequest describes the request a stub answers.
type StubRequest struct {
	Method         string   `json:"method"`
	URL            string   `json:"url"`
	Body           string   `json:"body,omitempty"`
	ContentType    string   `json:"contentType,omitempty"`
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`
}

// StubResponse is the canned response.
type StubResponse struct {
	Status       int               `json:"status"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body,omitempty"`
	Base64Body   string            `json:"base64Body,omitempty"`
	BodyFileName string            `json:"bodyFileName,omitempty"`
}

// ResponseBody returns the bytes served for the stub.
func (s *Stub) ResponseBody() ([]byte, error) {
	switch {
	case s.Response.BodyFileName != "":
		return s.Payload, nil
	case s.Response.Base64Body != "":
		return base64.StdEncoding.DecodeString(s.Response.Base64Body)
	default:
		return []byte(s.Response.Body), nil
	}
}

// RecordedRequest is a request received by the engine.
type RecordedRequest struct {
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	Body        string    `json:"body,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// RecordedResponse is an upstream response captured while proxying.
type RecordedResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers,omitempty"`
	Body    []byte      `json:"body,omitempty"`
}

// Recording is one forwarded exchange.
type Recording struct {
	Target   string           `json:"target"`
	Request  RecordedRequest  `json:"request"`
	Response RecordedResponse `json:"response"`
	Duration time.Duration    `json:"duration"`
}
