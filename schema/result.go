package schema

// ToolResult is the uniform outcome of every tool call: either a success
// carrying output text or a failure carrying an error message.
type ToolResult struct {
	output string
	err    string
	kind   ErrorKind
	failed bool
}

// Success returns a successful result.
func Success(output string) ToolResult {
	return ToolResult{output: output}
}

// Failure returns a failed result. The kind is derived from err.
func Failure(err error) ToolResult {
	if err == nil {
		return ToolResult{failed: true, kind: KindBackend, err: "unknown error"}
	}
	return ToolResult{failed: true, kind: KindOf(err), err: err.Error()}
}

// OK reports whether the result is a success.
func (r ToolResult) OK() bool {
	return !r.failed
}

// Output returns the success payload, or "" for failures.
func (r ToolResult) Output() string {
	if r.failed {
		return ""
	}
	return r.output
}

// Error returns the failure message, or "" for successes.
func (r ToolResult) Error() string {
	if !r.failed {
		return ""
	}
	return r.err
}

// Kind returns the failure kind, or "" for successes.
func (r ToolResult) Kind() ErrorKind {
	if !r.failed {
		return ""
	}
	return r.kind
}

// Text renders the result as a single line of caller-facing text.
func (r ToolResult) Text() string {
	if r.failed {
		return "Error: " + r.err
	}
	return r.output
}

// ToolResultPayload is the JSON shape of a ToolResult.
type ToolResultPayload struct {
	OK     bool      `json:"ok"`
	Output string    `json:"output,omitempty"`
	Error  string    `json:"error,omitempty"`
	Kind   ErrorKind `json:"kind,omitempty"`
}

// Payload converts the result for JSON encoding.
func (r ToolResult) Payload() ToolResultPayload {
	return ToolResultPayload{
		OK:     r.OK(),
		Output: r.Output(),
		Error:  r.Error(),
		Kind:   r.Kind(),
	}
}
