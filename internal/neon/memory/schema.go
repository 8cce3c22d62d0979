package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaURL = "https://schemas.neon.local/memory/record.json"

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

// RecordSchema returns the JSON schema of Record, reflected from the struct.
// Every field is optional (missing fields are default-filled) and extra
// fields are tolerated, but present fields must have the right type.
func RecordSchema() ([]byte, error) {
	r := &invopop.Reflector{
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	return r.Reflect(&Record{}).MarshalJSON()
}

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		raw, err := RecordSchema()
		if err != nil {
			recordSchemaErr = fmt.Errorf("memory: reflect record schema: %w", err)
			return
		}
		recordSchema, recordSchemaErr = jsonschema.CompileString(recordSchemaURL, string(raw))
		if recordSchemaErr != nil {
			recordSchemaErr = fmt.Errorf("memory: compile record schema: %w", recordSchemaErr)
		}
	})
	return recordSchema, recordSchemaErr
}

// validateRecord checks that data is a JSON object whose known fields have
// the expected types.
func validateRecord(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	sch, err := compiledRecordSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
