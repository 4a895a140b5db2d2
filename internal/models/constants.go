// Package models contains data types and constants for the Gemini generative-language API.
package models

import (
	"sort"
	"strings"
)

// Endpoints for the generative-language API
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	APIVersion     = "v1beta"
	MethodGenerate = "generateContent"
)

// Model describes a generative model that can answer prompts
type Model struct {
	Name        string
	Description string
}

// Available models
var (
	Model15Flash = Model{
		Name:        "gemini-1.5-flash",
		Description: "Fast, versatile model",
	}

	Model15Pro = Model{
		Name:        "gemini-1.5-pro",
		Description: "Complex reasoning tasks",
	}

	Model20Flash = Model{
		Name:        "gemini-2.0-flash",
		Description: "Next generation flash model",
	}

	Model25Flash = Model{
		Name:        "gemini-2.5-flash",
		Description: "Price-performance model with thinking",
	}

	// DefaultModel is the model used when nothing else is configured
	DefaultModel = Model15Flash
)

// modelAliases maps short names to model names
var modelAliases = map[string]string{
	"flash":   Model15Flash.Name,
	"pro":     Model15Pro.Name,
	"flash-2": Model20Flash.Name,
	"fast":    Model25Flash.Name,
}

// AllModels returns a list of all known models
func AllModels() []Model {
	return []Model{Model15Flash, Model15Pro, Model20Flash, Model25Flash}
}

// Aliases returns the short names that resolve to the named model, sorted
func Aliases(name string) []string {
	var out []string
	for alias, full := range modelAliases {
		if full == name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// ModelFromName resolves a model by name or alias.
// Unknown non-empty names are passed through unchanged so newer models can be
// used without a release; an empty name yields DefaultModel.
func ModelFromName(name string) Model {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultModel
	}
	if full, ok := modelAliases[strings.ToLower(name)]; ok {
		name = full
	}
	name = strings.TrimPrefix(name, "models/")
	for _, m := range AllModels() {
		if m.Name == name {
			return m
		}
	}
	return Model{Name: name}
}

// GenerateEndpoint returns the generateContent URL for a model, without the API key
func GenerateEndpoint(baseURL string, model Model) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + APIVersion + "/models/" + model.Name + ":" + MethodGenerate
}

// DefaultHeaders returns the headers sent with every generate request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "gemmy",
	}
}
