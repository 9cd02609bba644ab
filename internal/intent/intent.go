// Package intent implements the structured message carried in discovery
// datagrams. An intent is written as a URI:
//
//	intent:<data>#Intent;action=<action>;category=<c>;S.<key>=<value>;end
//
// Extras are typed by prefix: S string, B bool, i int, l int64, f float32,
// d float64. Keys and values are query-escaped. Text without an "#Intent;"
// section is a plain URI and decodes to a view intent whose data is the text.
package intent

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	ActionView = "android.intent.action.VIEW"

	scheme   = "intent:"
	fragment = "#Intent;"
	end      = "end"
)

type Intent struct {
	Action     string
	Data       string
	Type       string
	Package    string
	Categories []string
	Extras     map[string]any
}

func New(action string) *Intent {
	return &Intent{Action: action}
}

func (in *Intent) AddCategory(category string) *Intent {
	in.Categories = append(in.Categories, category)
	return in
}

// PutExtra stores a typed extra. Supported types are string, bool, int,
// int64, float32 and float64.
func (in *Intent) PutExtra(key string, value any) *Intent {
	if in.Extras == nil {
		in.Extras = make(map[string]any)
	}
	in.Extras[key] = value
	return in
}

func (in *Intent) StringExtra(key string) (string, bool) {
	v, ok := in.Extras[key].(string)
	return v, ok
}

// URI renders the intent in its textual wire form.
func (in *Intent) URI() (string, error) {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString(url.QueryEscape(in.Data))
	b.WriteString(fragment)

	if in.Action != "" {
		writePart(&b, "action", in.Action)
	}
	for _, c := range in.Categories {
		writePart(&b, "category", c)
	}
	if in.Type != "" {
		writePart(&b, "type", in.Type)
	}
	if in.Package != "" {
		writePart(&b, "package", in.Package)
	}

	keys := make([]string, 0, len(in.Extras))
	for k := range in.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		prefix, value, err := formatExtra(in.Extras[k])
		if err != nil {
			return "", fmt.Errorf("extra %q: %w", k, err)
		}
		writePart(&b, prefix+"."+url.QueryEscape(k), value)
	}

	b.WriteString(end)
	return b.String(), nil
}

func writePart(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(value))
	b.WriteByte(';')
}

func formatExtra(v any) (string, string, error) {
	switch val := v.(type) {
	case string:
		return "S", val, nil
	case bool:
		return "B", strconv.FormatBool(val), nil
	case int:
		return "i", strconv.Itoa(val), nil
	case int64:
		return "l", strconv.FormatInt(val, 10), nil
	case float32:
		return "f", strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return "d", strconv.FormatFloat(val, 'g', -1, 64), nil
	default:
		return "", "", fmt.Errorf("%w: %T", ErrUnsupportedExtra, v)
	}
}

// Parse decodes the textual form of an intent.
func Parse(data []byte) (*Intent, error) {
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	return ParseURI(string(data))
}

func ParseURI(uri string) (*Intent, error) {
	i := strings.Index(uri, fragment)
	if i < 0 {
		if strings.HasPrefix(uri, scheme) {
			return nil, fmt.Errorf("%w: missing %q section", ErrMalformed, fragment)
		}
		return &Intent{Action: ActionView, Data: uri}, nil
	}

	in := &Intent{}

	head := uri[:i]
	if strings.HasPrefix(head, scheme) {
		data, err := url.QueryUnescape(strings.TrimPrefix(head, scheme))
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrMalformed, err)
		}
		in.Data = data
	} else {
		in.Data = head
	}

	parts := strings.Split(uri[i+len(fragment):], ";")
	if parts[len(parts)-1] != end {
		return nil, fmt.Errorf("%w: missing terminating %q", ErrMalformed, end)
	}

	for _, part := range parts[:len(parts)-1] {
		key, raw, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: part %q has no value", ErrMalformed, part)
		}
		value, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: part %q: %v", ErrMalformed, part, err)
		}

		switch key {
		case "action":
			in.Action = value
		case "category":
			in.Categories = append(in.Categories, value)
		case "type":
			in.Type = value
		case "package":
			in.Package = value
		default:
			if err := in.parseExtra(key, value); err != nil {
				return nil, err
			}
		}
	}

	return in, nil
}

func (in *Intent) parseExtra(key, value string) error {
	prefix, name, ok := strings.Cut(key, ".")
	if !ok || name == "" {
		return fmt.Errorf("%w: unknown key %q", ErrMalformed, key)
	}
	name, err := url.QueryUnescape(name)
	if err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrMalformed, key, err)
	}

	var v any
	switch prefix {
	case "S":
		v = value
	case "B":
		v, err = strconv.ParseBool(value)
	case "i":
		v, err = strconv.Atoi(value)
	case "l":
		v, err = strconv.ParseInt(value, 10, 64)
	case "f":
		var f float64
		f, err = strconv.ParseFloat(value, 32)
		v = float32(f)
	case "d":
		v, err = strconv.ParseFloat(value, 64)
	default:
		return fmt.Errorf("%w: unknown extra type %q", ErrMalformed, prefix)
	}
	if err != nil {
		return fmt.Errorf("%w: extra %q: %v", ErrMalformed, name, err)
	}

	in.PutExtra(name, v)
	return nil
}
