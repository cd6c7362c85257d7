package bridge

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// parseTree decodes a provider body. Empty, malformed or non-object bodies
// yield an empty tree so every accessor below degrades to "".
// Numbers keep their literal text, so ids above 2^53 survive intact.
func parseTree(body []byte) *structpb.Struct {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return &structpb.Struct{}
	}
	return toStruct(doc)
}

func toStruct(m map[string]interface{}) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(m))
	for k, v := range m {
		fields[k] = toValue(v)
	}
	return &structpb.Struct{Fields: fields}
}

func toValue(v interface{}) *structpb.Value {
	switch x := v.(type) {
	case json.Number:
		return structpb.NewStringValue(x.String())
	case string:
		return structpb.NewStringValue(x)
	case bool:
		return structpb.NewBoolValue(x)
	case map[string]interface{}:
		return structpb.NewStructValue(toStruct(x))
	case []interface{}:
		values := make([]*structpb.Value, len(x))
		for i, e := range x {
			values[i] = toValue(e)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: values})
	}
	return structpb.NewNullValue()
}

func field(s *structpb.Struct, key string) *structpb.Value {
	return s.GetFields()[key]
}

func object(s *structpb.Struct, key string) *structpb.Struct {
	return field(s, key).GetStructValue()
}

func list(s *structpb.Struct, key string) []*structpb.Value {
	return field(s, key).GetListValue().GetValues()
}

// str renders a scalar field as text. Numbers are written without exponent.
func str(s *structpb.Struct, key string) string {
	switch v := field(s, key).GetKind().(type) {
	case *structpb.Value_StringValue:
		return v.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(v.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(v.BoolValue)
	}
	return ""
}

// paymentInfo reads transactions.payments[0].
func paymentInfo(tree *structpb.Struct) (id, status string) {
	payments := list(object(tree, "transactions"), "payments")
	if len(payments) == 0 {
		return "", ""
	}
	p0 := payments[0].GetStructValue()
	return str(p0, "id"), str(p0, "status")
}

// qrData reads type_response.qr_data.
func qrData(tree *structpb.Struct) string {
	return str(object(tree, "type_response"), "qr_data")
}

// providerError reads errors[0].code and errors[0].message, falling back to
// the top-level error and message fields.
func providerError(tree *structpb.Struct) (code, message string) {
	if errs := list(tree, "errors"); len(errs) > 0 {
		e0 := errs[0].GetStructValue()
		return str(e0, "code"), str(e0, "message")
	}
	return str(tree, "error"), str(tree, "message")
}

// quotedStatus returns the first single-quoted word of a provider message,
// e.g. "expired" from "cannot cancel order in status 'expired'".
func quotedStatus(msg string) string {
	_, rest, ok := strings.Cut(msg, "'")
	if !ok {
		return ""
	}
	status, _, ok := strings.Cut(rest, "'")
	if !ok {
		return ""
	}
	return strings.TrimSpace(status)
}
