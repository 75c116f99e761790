package policy

import (
	_ "embed"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"

	"github.com/clusterforge/catconf/internal/schemadoc"
)

//go:generate go run ../../build/gen-policy-schema.go policy.schema.json

//go:embed policy.schema.json
var schemaBytes []byte

//go:embed default_policy.json
var defaultPolicyBytes []byte

const (
	embeddedSchemaName = "policy.schema.json"
	embeddedPolicyName = "default_policy.json"
)

var embeddedSchema *jsonschema.Schema

func init() {
	sch, err := schemadoc.CompileBytes(embeddedSchemaName, schemaBytes)
	if err != nil {
		panic(err)
	}
	embeddedSchema = sch
}

// DefaultPolicy returns the embedded policy that reproduces the fixed-rule
// adapter's outputs declaratively.
func DefaultPolicy() []byte {
	return defaultPolicyBytes
}

// policySchema resolves the schema to validate against: the file at
// schemaPath when given, the embedded default otherwise.
func policySchema(schemaPath string) (*jsonschema.Schema, string, error) {
	if schemaPath == "" {
		return embeddedSchema, embeddedSchemaName, nil
	}
	sch, err := schemadoc.CompileFile(schemaPath)
	if err != nil {
		return nil, "", err
	}
	return sch, schemaPath, nil
}

// schemaModel mirrors the wire shape for schema reflection. Filter and
// operation types are free-form strings on purpose: unknown kinds are
// handled at evaluation time, not rejected at validation time.
type schemaModel struct {
	Version string            `json:"version" required:"true"`
	Targets map[string]Target `json:"targets" required:"true"`
}

// ReflectSchema generates a JSON schema from the policy model. Used by the
// build-time generator to keep policy.schema.json in sync.
func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(schemaModel{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}
