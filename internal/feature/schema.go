package feature

import (
	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/clusterforge/catconf/internal/schemadoc"
)

//go:embed featurelist.schema.json
var featureListSchemaBytes []byte

const featureListSchemaName = "featurelist.schema.json"

var featureListSchema *jsonschema.Schema

func init() {
	sch, err := schemadoc.CompileBytes(featureListSchemaName, featureListSchemaBytes)
	if err != nil {
		panic(err)
	}
	featureListSchema = sch
}
