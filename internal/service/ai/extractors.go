package ai

import "strings"

// Extractor pulls a reply string out of a decoded webhook body.
type Extractor func(body any) (string, bool)

// objectShapes are the object layouts the webhook is known to answer with,
// in priority order.
var objectShapes = []Extractor{
	legacyNodeShape,
	successResponseShape,
	fieldShape("response"),
	fieldShape("message"),
	fieldShape("text"),
	fieldShape("output"),
	fieldShape("content"),
}

// Extractors is the full ordered list tried by ExtractReply.
var Extractors = append(append([]Extractor{}, objectShapes...), firstElementShape, plainStringShape)

// ExtractReply runs Extractors in order and returns the first non-empty
// reply with the templating marker removed.
func ExtractReply(body any) (string, bool) {
	return extractWith(Extractors, body)
}

func extractWith(extractors []Extractor, body any) (string, bool) {
	for _, extract := range extractors {
		if reply, ok := extract(body); ok {
			reply = stripTemplateMarker(reply)
			if reply == "" {
				continue
			}
			return reply, true
		}
	}
	return "", false
}

// stripTemplateMarker drops the single leading "=" that n8n leaves on
// expression values.
func stripTemplateMarker(s string) string {
	return strings.TrimPrefix(s, "=")
}

// legacyNodeShape handles the n8n misconfiguration that echoes the node
// definition: {"node":"Respond to Webhook","settings":{"responseBody":{"response":"..."}}}.
func legacyNodeShape(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok || obj["node"] != "Respond to Webhook" {
		return "", false
	}
	settings, ok := obj["settings"].(map[string]any)
	if !ok {
		return "", false
	}
	responseBody, ok := settings["responseBody"].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmptyString(responseBody["response"])
}

func successResponseShape(body any) (string, bool) {
	obj, ok := body.(map[string]any)
	if !ok || !truthy(obj["success"]) {
		return "", false
	}
	return nonEmptyString(obj["response"])
}

func fieldShape(name string) Extractor {
	return func(body any) (string, bool) {
		obj, ok := body.(map[string]any)
		if !ok {
			return "", false
		}
		return nonEmptyString(obj[name])
	}
}

func firstElementShape(body any) (string, bool) {
	items, ok := body.([]any)
	if !ok || len(items) == 0 {
		return "", false
	}
	for _, extract := range objectShapes {
		if reply, ok := extract(items[0]); ok {
			return reply, true
		}
	}
	return plainStringShape(items[0])
}

func plainStringShape(body any) (string, bool) {
	return nonEmptyString(body)
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case nil:
		return false
	default:
		return true
	}
}
