package resources

import (
	"fmt"
	"strings"
)

// Problem is a problem document returned by the server. It satisfies the
// error interface so transport code can return it directly.
//
// See https://tools.ietf.org/html/rfc7807 and
// https://tools.ietf.org/html/rfc8555#section-6.7
type Problem struct {
	Type        string       `json:"type,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	Status      int          `json:"status,omitempty"`
	Instance    string       `json:"instance,omitempty"`
	SubProblems []SubProblem `json:"subproblems,omitempty"`
}

// SubProblem is an entry of a Problem's "subproblems" list.
// See https://tools.ietf.org/html/rfc8555#section-6.7.1
type SubProblem struct {
	Type       string      `json:"type,omitempty"`
	Detail     string      `json:"detail,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
}

func (p *Problem) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "acme: %d :: %s :: %s", p.Status, p.Type, p.Detail)
	for _, sub := range p.SubProblems {
		fmt.Fprintf(&b, ", problem: %q :: %s", sub.Type, sub.Detail)
		if sub.Identifier != nil {
			fmt.Fprintf(&b, " (%s)", sub.Identifier.Value)
		}
	}
	if p.Instance != "" {
		b.WriteString(", url: " + p.Instance)
	}
	return b.String()
}

// HasType reports whether the Problem has the given ACME error type, accepting
// either the full URN or its suffix (e.g. "badNonce").
func (p *Problem) HasType(errType string) bool {
	return p.Type == errType || strings.TrimPrefix(p.Type, "urn:ietf:params:acme:error:") == errType
}
