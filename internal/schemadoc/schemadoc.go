// Package schemadoc compiles JSON schemas and validates documents against
// them, converting validator output into the pipeline's error taxonomy.
package schemadoc

import (
	"bytes"
	"errors"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clusterforge/catconf/internal/errs"
)

var printer = message.NewPrinter(language.English)

// CompileBytes compiles an in-memory schema document. Used for the embedded
// default schemas, where a compile failure is a programming error.
func CompileBytes(name string, bs []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// CompileFile compiles a schema from disk. A missing file is a NotFoundError.
func CompileFile(path string) (*jsonschema.Schema, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &errs.NotFoundError{Path: path}
		}
		return nil, err
	}
	sch, err := CompileBytes(path, bs)
	if err != nil {
		return nil, &errs.ProcessingError{Op: "compile schema " + path, Err: err}
	}
	return sch, nil
}

// Validate checks a raw JSON document against a compiled schema. Violations
// surface as SchemaError carrying the JSON pointer of the deepest cause.
func Validate(sch *jsonschema.Schema, doc []byte, docPath, schemaPath string) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return &errs.ProcessingError{Op: "parse " + docPath, Err: err}
	}

	err = sch.Validate(instance)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &errs.ProcessingError{Op: "validate " + docPath, Err: err}
	}

	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	return &errs.SchemaError{
		DocPath:    docPath,
		SchemaPath: schemaPath,
		Pointer:    pointer(leaf.InstanceLocation),
		Message:    leaf.ErrorKind.LocalizedString(printer),
	}
}

func pointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		t = strings.ReplaceAll(t, "~", "~0")
		t = strings.ReplaceAll(t, "/", "~1")
		b.WriteString(t)
	}
	return b.String()
}
