package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestDecode_Request(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !msg.IsRequest() {
		t.Fatalf("Kind = %v, want request", msg.Kind)
	}
	if msg.Method != "ping" {
		t.Errorf("Method = %q, want %q", msg.Method, "ping")
	}
	if string(msg.ID) != "1" {
		t.Errorf("ID = %q, want %q", msg.ID, "1")
	}
}

func TestDecode_Notification(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !msg.IsNotification() {
		t.Fatalf("Kind = %v, want notification", msg.Kind)
	}
	if msg.ID != nil {
		t.Errorf("ID = %q, want nil for notification", msg.ID)
	}
}

func TestDecode_Response(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":"abc","result":{"ok":true}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !msg.IsResponse() {
		t.Fatalf("Kind = %v, want response", msg.Kind)
	}
	if string(msg.ID) != `"abc"` {
		t.Errorf("ID = %q, want %q (byte-exact string id)", msg.ID, `"abc"`)
	}
	if msg.Error != nil {
		t.Errorf("Error = %+v, want nil", msg.Error)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`not json`))
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decErr.Code != CodeParseError {
		t.Errorf("Code = %d, want %d", decErr.Code, CodeParseError)
	}
}

func TestDecode_WrongVersion(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"jsonrpc":"1.0","id":1,"method":"ping"}`))
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decErr.Code != CodeInvalidRequest {
		t.Errorf("Code = %d, want %d", decErr.Code, CodeInvalidRequest)
	}
}

func TestDecode_ResponseBothResultAndError(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":-1,"message":"x"}}`))
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decErr.Code != CodeInvalidRequest {
		t.Errorf("Code = %d, want %d", decErr.Code, CodeInvalidRequest)
	}
	if string(decErr.ID) != "1" {
		t.Errorf("recovered ID = %q, want %q", decErr.ID, "1")
	}
}

func TestDecode_ResponseNeitherResultNorError(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"jsonrpc":"2.0","id":1}`))
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decErr.Code != CodeInvalidRequest {
		t.Errorf("Code = %d, want %d", decErr.Code, CodeInvalidRequest)
	}
}

func TestDecode_NeitherMethodNorID(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"jsonrpc":"2.0"}`))
	var decErr *DecodeError
	if !asDecodeError(err, &decErr) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
	if decErr.Code != CodeInvalidRequest {
		t.Errorf("Code = %d, want %d", decErr.Code, CodeInvalidRequest)
	}
}

func TestDecode_PreservesNumericIDByteExact(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":42,"method":"ping"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(msg.ID) != "42" {
		t.Errorf("ID = %q, want %q", msg.ID, "42")
	}
}

func TestDecode_ExtractsProgressTokenMeta(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"x","_meta":{"progressToken":"tok-1"}}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if msg.Meta == nil {
		t.Fatal("Meta = nil, want progressToken extracted")
	}
	if string(msg.Meta.ProgressToken) != `"tok-1"` {
		t.Errorf("ProgressToken = %q, want %q", msg.Meta.ProgressToken, `"tok-1"`)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	original := NewResult(json.RawMessage("7"), json.RawMessage(`{"content":[]}`))
	raw, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(decoded.ID) != string(original.ID) {
		t.Errorf("ID = %q, want %q", decoded.ID, original.ID)
	}
	if !decoded.IsResponse() {
		t.Errorf("Kind = %v, want response", decoded.Kind)
	}
}

func TestNewError(t *testing.T) {
	t.Parallel()

	msg := NewError(json.RawMessage("5"), CodeMethodNotFound, "not found", nil)
	raw, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.Error == nil || decoded.Error.Code != CodeMethodNotFound {
		t.Errorf("Error = %+v, want code %d", decoded.Error, CodeMethodNotFound)
	}
}

// asDecodeError is a small helper since errors.As needs an addressable
// target and the tests above all want the same boilerplate.
func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
