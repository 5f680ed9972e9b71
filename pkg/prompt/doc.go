// Package prompt stores the prompt templates sent to language models.
//
// Templates are YAML files with a prompt using {placeholder} substitution.
// The detection prompts used by the model-backed resolvers are embedded and
// can be overridden from a directory.
package prompt
