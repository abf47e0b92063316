package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/packkeeper/internal/common"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const manifestSchemaURL = "https://packkeeper.local/schemas/manifest.schema.json"

const manifestSchema = `{
  "type": "object",
  "required": [
    "submission_id", "application_reference", "lpa_code", "applicant_name",
    "property_address", "application_type", "submission_timestamp", "documents",
    "total_documents", "total_size_bytes", "manifest_version", "integrity_verified"
  ],
  "properties": {
    "submission_id": {"type": "string", "minLength": 1},
    "application_reference": {"type": "string"},
    "lpa_code": {"type": "string"},
    "applicant_name": {"type": "string"},
    "property_address": {"type": "string"},
    "application_type": {"type": "string"},
    "submission_timestamp": {"type": "string"},
    "total_documents": {"type": "integer", "minimum": 0},
    "total_size_bytes": {"type": "integer", "minimum": 0},
    "manifest_version": {"type": "string", "minLength": 1},
    "integrity_verified": {"type": "boolean"},
    "documents": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": [
          "filename", "original_name", "file_size", "sha256_hash", "mime_type",
          "upload_timestamp", "document_type", "required", "verified"
        ],
        "properties": {
          "filename": {"type": "string"},
          "original_name": {"type": "string", "minLength": 1},
          "file_size": {"type": "integer", "exclusiveMinimum": 0},
          "sha256_hash": {"type": "string", "pattern": "^[0-9a-f]{64}$"},
          "mime_type": {"type": "string"},
          "upload_timestamp": {"type": "string"},
          "document_type": {"type": "string", "minLength": 1},
          "required": {"type": "boolean"},
          "verified": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadManifestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
			schemaErr = fmt.Errorf("manifest schema load failed: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(manifestSchemaURL)
	})
	return compiledSchema, schemaErr
}

// ValidateManifestJSON checks data against the manifest JSON schema.
func ValidateManifestJSON(data []byte) error {
	schema, err := loadManifestSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidManifest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidManifest, err)
	}
	return nil
}
