package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/taxonomy"
)

// metadataKeys are the promoted event.Metadata fields dropped from the
// rendered payload; id and source are rendered separately.
var metadataKeys = []string{"ID", "Timestamp", "Source"}

// applyPayload sets the fields of ev from a JSON object. Dynamic events
// accept any field; struct events accept their JSON field names only.
func applyPayload(ev event.Event, payload string) error {
	if payload == "" {
		return nil
	}
	if !gjson.Valid(payload) {
		return errors.New("payload is not valid JSON")
	}
	res := gjson.Parse(payload)
	if !res.IsObject() {
		return errors.New("payload must be a JSON object")
	}

	if d, ok := ev.(*event.Dynamic); ok {
		res.ForEach(func(key, value gjson.Result) bool {
			d.Set(key.String(), jsonValue(value))
			return true
		})
		return nil
	}

	for _, key := range metadataKeys {
		if res.Get(gjson.Escape(key)).Exists() {
			return fmt.Errorf("field %s cannot be set", key)
		}
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ev); err != nil {
		return fmt.Errorf("payload for %s: %w", ev.EventType().SimpleName(), err)
	}
	return nil
}

// jsonValue converts a gjson value the way script values are converted:
// integral numbers become int64.
func jsonValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False, gjson.True:
		return v.Bool()
	case gjson.Number:
		if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return i
		}
		return v.Num
	case gjson.String:
		return v.Str
	default:
		return v.Value()
	}
}

// renderEvent renders ev as indented JSON with its name, metadata,
// cancellation state and fields.
func renderEvent(ev event.Event) (string, error) {
	fields, err := eventFields(ev)
	if err != nil {
		return "", err
	}

	doc := []byte(`{}`)
	set := func(path string, value any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, value)
		}
	}
	set("event", ev.EventType().SimpleName())
	if mp, ok := ev.(event.MetadataProvider); ok {
		md := mp.EventMetadata()
		set("id", md.ID)
		set("source", md.Source)
	}
	if event.IsCancellable(ev) {
		set("cancelled", event.IsCancelled(ev))
	}
	if err == nil {
		doc, err = sjson.SetRawBytes(doc, "fields", fields)
	}
	if err != nil {
		return "", err
	}
	return pretty(doc), nil
}

func eventFields(ev event.Event) ([]byte, error) {
	if d, ok := ev.(*event.Dynamic); ok {
		return json.Marshal(d.Data)
	}
	fields, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	for _, key := range metadataKeys {
		if fields, err = sjson.DeleteBytes(fields, key); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// renderTypes renders the registered event types as an indented JSON array.
func renderTypes(registry *taxonomy.Registry) (string, error) {
	doc := []byte(`[]`)
	var err error
	for i, t := range registry.Types() {
		set := func(key string, value any) {
			if err == nil {
				doc, err = sjson.SetBytes(doc, strconv.Itoa(i)+"."+key, value)
			}
		}
		set("name", t.SimpleName())
		set("qualified", t.Name())
		if p := t.Parent(); p != nil {
			set("parent", p.Name())
		}
		if list, ok := t.HandlerList(); ok {
			set("endpoint", list.Owner().Name())
		}
		if ev, ok := t.New(); ok {
			set("cancellable", event.IsCancellable(ev))
		}
	}
	if err != nil {
		return "", err
	}
	return pretty(doc), nil
}

func pretty(doc []byte) string {
	return string(bytes.TrimSpace([]byte(gjson.GetBytes(doc, "@pretty").Raw)))
}
