package kafka

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"testing"

	"github.com/linkedin/goavro"
	"github.com/pkg/errors"
)

func TestConfluentSourceDecode(t *testing.T) {
	regURL := StartFakeRegistry(t)
	source := NewConfluentSource()
	source.RegistryURL = regURL

	data := mustAvroEncode(t, map[string]interface{}{
		"age":      map[string]interface{}{"double": 22.0},
		"survived": true,
		"who":      "man",
	})
	val := append([]byte{0, 0, 0, 0, 1}, data...)

	parsed, err := source.decodeAvroValueWithSchemaRegistry(val)
	if err != nil {
		t.Fatal(err)
	}
	rec := parsed.(map[string]interface{})
	if rec["age"].(float64) != 22.0 {
		t.Fatalf("unexpected age: %v", rec["age"])
	}
	if rec["survived"].(bool) != true {
		t.Fatalf("unexpected survived: %v", rec["survived"])
	}
}

func TestConfluentSourceDecodeNullAge(t *testing.T) {
	regURL := StartFakeRegistry(t)
	source := NewConfluentSource()
	source.RegistryURL = regURL

	data := mustAvroEncode(t, map[string]interface{}{
		"age":      nil,
		"survived": false,
		"who":      "woman",
	})
	val := append([]byte{0, 0, 0, 0, 1}, data...)

	parsed, err := source.decodeAvroValueWithSchemaRegistry(val)
	if err != nil {
		t.Fatal(err)
	}
	rec := parsed.(map[string]interface{})
	if rec["age"] != nil {
		t.Fatalf("expected nil age, got %v", rec["age"])
	}
}

func TestConfluentSourceBadMagic(t *testing.T) {
	source := NewConfluentSource()
	if _, err := source.decodeAvroValueWithSchemaRegistry([]byte{9, 9, 9, 9, 9, 9, 9}); err == nil {
		t.Fatal("expected error for bad magic byte")
	}
}

func mustAvroEncode(t *testing.T, value map[string]interface{}) []byte {
	t.Helper()
	codec, err := goavro.NewCodec(passengerSchema)
	if err != nil {
		t.Fatal(err)
	}
	data, err := codec.BinaryFromNative([]byte{}, value)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

var passengerSchema = `{
	"type": "record",
	"name": "Passenger",
	"fields": [
		{"name": "age", "type": ["null", "double"]},
		{"name": "survived", "type": "boolean"},
		{"name": "who", "type": "string"}
	]
}`

func StartFakeRegistry(t *testing.T) string {
	server := &http.Server{Addr: ":0", Handler: http.HandlerFunc(RegistryHandler)}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	go func() {
		err := server.Serve(ln)
		if err != nil && errors.Cause(err) != http.ErrServerClosed {
			log.Printf("fake registry: %v", err)
		}
	}()
	return ln.Addr().String()
}

func RegistryHandler(w http.ResponseWriter, r *http.Request) {
	enc := json.NewEncoder(w)
	err := enc.Encode(Schema{Schema: passengerSchema, ID: 1})
	if err != nil {
		fmt.Println("encoding schema in fake registry:", err)
	}
}
