package script

import (
	"fmt"

	"github.com/dshills/eventscript/internal/event"
)

// Keys of a listener configuration.
const (
	KeyEvent           = "event"
	KeyHandler         = "handler"
	KeyPriority        = "priority"
	KeyIgnoreCancelled = "ignoreCancelled"
)

// ListenerSpec is a parsed listener configuration.
type ListenerSpec struct {
	Event           string
	Handler         string
	Priority        event.Priority
	IgnoreCancelled bool
}

// ParseListenerSpec reads a listener configuration. event and handler are
// required strings. priority is optional and may be a priority name, an
// event.Priority or an integral number; it defaults to normal. ignoreCancelled is an optional
// boolean, false by default. Other keys are ignored.
func ParseListenerSpec(cfg map[string]any) (ListenerSpec, error) {
	spec := ListenerSpec{Priority: event.PriorityNormal}
	if cfg == nil {
		return spec, fmt.Errorf("%w: configuration is required", ErrValidation)
	}

	var err error
	if spec.Event, err = requiredString(cfg, KeyEvent); err != nil {
		return spec, err
	}
	if spec.Handler, err = requiredString(cfg, KeyHandler); err != nil {
		return spec, err
	}

	switch p := cfg[KeyPriority].(type) {
	case nil:
	case string:
		if spec.Priority, err = event.ParsePriority(p); err != nil {
			return spec, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	case event.Priority:
		if !p.Valid() {
			return spec, fmt.Errorf("%w: %w: %d", ErrValidation, event.ErrInvalidPriority, int(p))
		}
		spec.Priority = p
	case int64:
		if spec.Priority, err = checkPriority(p); err != nil {
			return spec, err
		}
	case int:
		if spec.Priority, err = checkPriority(int64(p)); err != nil {
			return spec, err
		}
	default:
		return spec, fmt.Errorf("%w: %s must be a name or an integer, got %T", ErrValidation, KeyPriority, p)
	}

	switch v := cfg[KeyIgnoreCancelled].(type) {
	case nil:
	case bool:
		spec.IgnoreCancelled = v
	default:
		return spec, fmt.Errorf("%w: %s must be a boolean, got %T", ErrValidation, KeyIgnoreCancelled, v)
	}

	return spec, nil
}

func checkPriority(n int64) (event.Priority, error) {
	p := event.Priority(n)
	if int64(p) != n || !p.Valid() {
		return event.PriorityNormal, fmt.Errorf("%w: %w: %d", ErrValidation, event.ErrInvalidPriority, n)
	}
	return p, nil
}

func requiredString(cfg map[string]any, key string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing %q", ErrValidation, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrValidation, key, v)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %q is empty", ErrValidation, key)
	}
	return s, nil
}
