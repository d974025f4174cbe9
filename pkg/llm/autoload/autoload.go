// Package autoload registers every built-in LLM provider. Import it for its
// side effects.
package autoload

import (
	_ "topovibe/pkg/llm/gemini"
	_ "topovibe/pkg/llm/ollama"
	_ "topovibe/pkg/llm/openailm"
)
