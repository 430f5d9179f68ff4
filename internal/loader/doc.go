// Package loader reads sketch definitions from disk.
//
// Three formats are accepted, chosen by file extension:
//
//   - .cue: unified with the #Sketch definition (schema.cue), which fills
//     in defaults such as names and regulation signs. The document may sit
//     at the top level or under a `sketch` field.
//   - .json: validated against sketch.schema.json before decoding.
//   - .yaml / .yml: converted to JSON and handled like a JSON document.
//
// Every format ends in records.SketchData, which sketch.FromData turns into
// a live sketch.
package loader
