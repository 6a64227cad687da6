package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, raw string) {
		t.Helper()
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal sample: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	exploreReq := compile("explore_request.schema.json")
	exploreRep := compile("explore_report.schema.json")
	license := compile("license.schema.json")
	digReq := compile("dig_request.schema.json")
	balance := compile("balance.schema.json")
	srvErr := compile("error.schema.json")

	validate(exploreReq, `{"posX":12,"posY":3400,"sizeX":1,"sizeY":1}`)
	validate(exploreRep, `{"amount":3}`)
	validate(license, `{"id":17,"digAllowed":3,"digUsed":1}`)
	validate(digReq, `{"licenseID":17,"posX":12,"posY":3400,"depth":5}`)
	validate(balance, `{"balance":120,"wallet":[1,2,3,4,5]}`)
	validate(srvErr, `{"code":409,"message":"too many active licenses"}`)
}

func TestSchemas_RejectBadShapes(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "dig_request.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{"licenseID":17,"posX":0,"posY":0,"depth":0}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("depth 0 should fail validation")
	}
}
