package model

import "fmt"

// ConfigurationError is returned when required configuration, such as the
// engine token, is missing.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("configuration: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Message)
}

// SubmissionError is returned when the engine rejects or never receives a
// workflow. Submissions are not retried.
type SubmissionError struct {
	Workflow string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit workflow %s: %v", e.Workflow, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// TransientFetchError is returned when a status fetch fails at the
// transport or HTTP level. The status is unknown for that cycle only.
type TransientFetchError struct {
	Workflow string
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch status of workflow %s: %v", e.Workflow, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// MalformedProgressError is returned when an engine progress string is not
// of the form "<completed>/<total>".
type MalformedProgressError struct {
	Progress string
}

func (e *MalformedProgressError) Error() string {
	return fmt.Sprintf("malformed progress %q: want <completed>/<total>", e.Progress)
}
