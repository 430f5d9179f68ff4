package loader

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sketchbook/internal/records"
	"github.com/roach88/sketchbook/internal/sketch"
)

// Format is a sketch definition syntax.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var (
	//go:embed schema.cue
	cueSchema string

	//go:embed sketch.schema.json
	jsonSchema []byte
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported sketch file %s (want .cue, .json, .yaml or .yml)", path),
		}
	}
}

// Load reads a sketch definition and builds the sketch it describes.
func Load(path string) (*sketch.Sketch, error) {
	data, err := LoadData(path)
	if err != nil {
		return nil, err
	}
	sk, err := sketch.FromData(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRejected, Message: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	return sk, nil
}

// LoadData reads a sketch definition without building it.
func LoadData(path string) (records.SketchData, error) {
	format, err := FormatOf(path)
	if err != nil {
		return records.SketchData{}, err
	}
	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return records.SketchData{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("sketch file not found: %s", path), Err: err}
	}
	if err != nil {
		return records.SketchData{}, &LoadError{Code: ErrCodeReadFailed, Message: err.Error(), Err: err}
	}
	return Parse(src, format, path)
}

// Parse decodes src in the given format. filename is used for positions
// in CUE errors.
func Parse(src []byte, format Format, filename string) (records.SketchData, error) {
	switch format {
	case FormatCUE:
		return parseCUE(src, filename)
	case FormatJSON:
		return parseJSON(src)
	case FormatYAML:
		return parseYAML(src)
	default:
		return records.SketchData{}, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unknown format %q", format)}
	}
}

func parseCUE(src []byte, filename string) (records.SketchData, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(cueSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return records.SketchData{}, fromCUEError(ErrCodeGeneric, err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return records.SketchData{}, fromCUEError(ErrCodeBuildFailed, err)
	}
	if nested := v.LookupPath(cue.ParsePath("sketch")); nested.Exists() {
		v = nested
	}

	v = schema.LookupPath(cue.ParsePath("#Sketch")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return records.SketchData{}, fromCUEError(ErrCodeBuildFailed, err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return records.SketchData{}, fromCUEError(ErrCodeBuildFailed, err)
	}
	return parseJSON(out)
}

func parseYAML(src []byte) (records.SketchData, error) {
	var doc any
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return records.SketchData{}, &LoadError{Code: ErrCodeRecord, Message: fmt.Sprintf("parse yaml: %v", err), Err: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return records.SketchData{}, &LoadError{Code: ErrCodeRecord, Message: fmt.Sprintf("convert yaml: %v", err), Err: err}
	}
	return parseJSON(out)
}

func parseJSON(src []byte) (records.SketchData, error) {
	if err := validateSchema(src); err != nil {
		return records.SketchData{}, err
	}
	data, err := records.Decode[records.SketchData](string(src))
	if err != nil {
		return records.SketchData{}, &LoadError{Code: ErrCodeRecord, Message: err.Error(), Err: err}
	}
	return data, nil
}

var sketchSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jsonSchema))
	if err != nil {
		panic(fmt.Sprintf("loader: invalid embedded schema: %v", err))
	}
	return s
}

func validateSchema(src []byte) error {
	result, err := sketchSchema.Validate(gojsonschema.NewBytesLoader(src))
	if err != nil {
		return &LoadError{Code: ErrCodeRecord, Message: fmt.Sprintf("invalid JSON: %v", err), Err: err}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &LoadError{Code: ErrCodeSchema, Message: strings.Join(problems, "; ")}
}

// Save writes data to path in the format picked by its extension. CUE
// output is not supported; write JSON or YAML instead.
func Save(path string, data records.SketchData) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	out, err := Marshal(data, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return &LoadError{Code: ErrCodeWriteFailed, Message: err.Error(), Err: err}
	}
	return nil
}

// Marshal renders data as indented JSON or as YAML with the JSON field names.
func Marshal(data records.SketchData, format Format) ([]byte, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal sketch: %w", err)
	}
	switch format {
	case FormatJSON:
		return append(out, '\n'), nil
	case FormatYAML:
		var doc any
		if err := json.Unmarshal(out, &doc); err != nil {
			return nil, fmt.Errorf("marshal sketch: %w", err)
		}
		return yaml.Marshal(doc)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("cannot write %s sketches", format)}
	}
}
