package catalog

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/clusterforge/catconf/internal/schemadoc"
)

//go:embed catalog.schema.json
var schemaBytes []byte

const embeddedSchemaName = "catalog.schema.json"

var embeddedSchema *jsonschema.Schema

func init() {
	sch, err := schemadoc.CompileBytes(embeddedSchemaName, schemaBytes)
	if err != nil {
		panic(err)
	}
	embeddedSchema = sch
}

// catalogSchema resolves the schema to validate against: the file at
// schemaPath when given, the embedded default otherwise.
func catalogSchema(schemaPath string) (*jsonschema.Schema, string, error) {
	if schemaPath == "" {
		return embeddedSchema, embeddedSchemaName, nil
	}
	sch, err := schemadoc.CompileFile(schemaPath)
	if err != nil {
		return nil, "", err
	}
	return sch, schemaPath, nil
}
