package validator

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"sort"

	playground "github.com/go-playground/validator/v10"
)

// Field error messages.
const (
	MsgRequired     = "Missing data for required field."
	MsgNull         = "Field may not be null."
	MsgNotString    = "Not a valid string."
	MsgInvalidEmail = "Not a valid email address."
	MsgInvalidValue = "Invalid value."
	MsgUnknownField = "Unknown field."
)

// Kind is the type a field's value is coerced to.
type Kind int

const (
	String Kind = iota
	Email
)

// Field declares one member of a request body.
type Field struct {
	Name     string
	Required bool
	Kind     Kind
	// Rule is a go-playground/validator tag checked after type coercion,
	// e.g. "min=3". A failure yields MsgInvalidValue.
	Rule        string
	Description string
}

// Schema is the declared shape of one endpoint's request body.
// Undeclared members are rejected.
type Schema struct {
	Name   string
	Fields []Field
}

// Values is the validated payload handed to the handler.
type Values map[string]string

// Get returns the named value and whether the client sent it.
func (v Values) Get(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

// Ptr returns a pointer to the named value, or nil when absent.
func (v Values) Ptr(name string) *string {
	if s, ok := v[name]; ok {
		return &s
	}
	return nil
}

// FieldErrors maps a field name to every message recorded against it.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

var rules = playground.New()

// Validate checks payload against every declared field, without stopping
// at the first failure. On success the coerced values are returned and the
// error map is nil.
func (s *Schema) Validate(payload map[string]any) (Values, FieldErrors) {
	values := make(Values, len(s.Fields))
	errs := make(FieldErrors)
	declared := make(map[string]struct{}, len(s.Fields))

	for _, f := range s.Fields {
		declared[f.Name] = struct{}{}

		raw, present := payload[f.Name]
		if !present {
			if f.Required {
				errs.add(f.Name, MsgRequired)
			}
			continue
		}
		if raw == nil {
			errs.add(f.Name, MsgNull)
			continue
		}
		str, ok := raw.(string)
		if !ok {
			errs.add(f.Name, MsgNotString)
			continue
		}
		if f.Kind == Email && rules.Var(str, "email") != nil {
			errs.add(f.Name, MsgInvalidEmail)
			continue
		}
		if f.Rule != "" && rules.Var(str, f.Rule) != nil {
			errs.add(f.Name, MsgInvalidValue)
			continue
		}
		values[f.Name] = str
	}

	unknown := make([]string, 0)
	for name := range payload {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs.add(name, MsgUnknownField)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return values, nil
}

// Decode extracts the request payload: form values for urlencoded bodies,
// otherwise the body parsed as JSON whatever the declared type. Anything undecodable, or not an object, decodes to an empty payload.
func Decode(r *http.Request) map[string]any {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return map[string]any{}
		}
		payload := make(map[string]any, len(r.PostForm))
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				payload[k] = vs[0]
			}
		}
		return payload
	}

	if r.Body == nil {
		return map[string]any{}
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return map[string]any{}
	}
	// Leave the body readable for anything downstream.
	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}
