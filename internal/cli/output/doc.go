// Package output renders command results for the snakeview CLI.
//
// Every command builds a plain value (a struct, a slice of structs, a map or
// a prepared *Table) and hands it to the Formatter selected by --output:
//
//   - table: aligned columns, struct fields become headers
//   - json: indented encoding/json output
//   - yaml: gopkg.in/yaml.v3 output
//
// Struct fields tagged `table:"wide"` only appear with --wide, fields tagged
// `table:"-"` never appear in tables. ProgressBar and Spinner write
// interactive status lines to stderr during replay and while waiting for a
// simulator.
package output
