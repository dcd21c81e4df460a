package signing

import (
	"fmt"
	"time"

	"github.com/cbroglie/mustache"
)

// StampTimeLayout is how the step timestamp appears in the visible stamp.
const StampTimeLayout = "2006-01-02 15:04:05 MST"

// Stamp renders the visible text of a signature field.
// Available variables: name, email, work_id, timestamp.
type Stamp struct {
	tmpl *mustache.Template
	loc  *time.Location
}

// NewStamp compiles a mustache template.
func NewStamp(template string, loc *time.Location) (*Stamp, error) {
	tmpl, err := mustache.ParseString(template)
	if err != nil {
		return nil, fmt.Errorf("parse stamp template: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Stamp{tmpl: tmpl, loc: loc}, nil
}

// Render fills the template for one signer at one instant.
func (s *Stamp) Render(id Identity, at time.Time) (string, error) {
	return s.tmpl.Render(map[string]string{
		"name":      id.Name,
		"email":     id.Email,
		"work_id":   id.WorkID,
		"timestamp": at.In(s.loc).Format(StampTimeLayout),
	})
}
