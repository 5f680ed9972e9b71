// Package template reads role, agent and target definitions.
//
// Templates are plain records decoded with mapstructure, so the same types
// serve YAML files and Loam documents. RoleTemplate.Build is the state machine
// definition loader: it merges property descriptions and hands the states to
// domain.NewRole for validation.
package template
