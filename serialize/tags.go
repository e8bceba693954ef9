package serialize

import (
	"reflect"
	"strings"

	"example.com/curve/redact"
)

// structTagKey is the struct tag name a payload field declares its
// redaction rule under, e.g. `redact:"type=EMAIL,strategy=MASK,level=NORMAL"`.
const structTagKey = "redact"

// ParseTag decodes a `redact:"..."` struct tag into a Rule. An empty
// tag yields the zero Rule (empty Strategy, which Processor.Apply treats
// like StrategyNone), meaning the field passes through unredacted.
func ParseTag(tag string) redact.Rule {
	var rule redact.Rule
	if tag == "" {
		return rule
	}
	for _, part := range strings.Split(tag, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "type":
			rule.Type = redact.Type(val)
		case "strategy":
			rule.Strategy = redact.Strategy(val)
		case "level":
			rule.Level = redact.Level(val)
		case "key":
			rule.EncryptKey = val
		}
	}
	return rule
}

// RuleForField returns the Rule declared by fieldName's struct tag, if
// payloadType has such a field and tag.
func RuleForField(payloadType reflect.Type, fieldName string) (redact.Rule, bool) {
	field, ok := payloadType.FieldByName(fieldName)
	if !ok {
		return redact.Rule{}, false
	}
	tag, ok := field.Tag.Lookup(structTagKey)
	if !ok {
		return redact.Rule{}, false
	}
	return ParseTag(tag), true
}

// redactPayload returns a shallow copy of payload (which must be a
// struct) with every string field tagged `redact:"..."` transformed by
// proc. Fields without the tag, or whose kind is not string, pass
// through unchanged; payload itself is never mutated.
func redactPayload(proc *redact.Processor, payload any) (any, error) {
	v := reflect.ValueOf(payload)
	if v.Kind() != reflect.Struct {
		return payload, nil
	}
	t := v.Type()

	out := reflect.New(t).Elem()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanInterface() {
			continue
		}

		tag, tagged := field.Tag.Lookup(structTagKey)
		if !tagged || fv.Kind() != reflect.String {
			out.Field(i).Set(fv)
			continue
		}

		rule := ParseTag(tag)
		transformed, err := proc.Apply(rule, fv.String())
		if err != nil {
			return nil, err
		}
		out.Field(i).SetString(transformed)
	}
	return out.Interface(), nil
}
