package llm

// Tool 描述一個可被模型呼叫的能力。Parameters 回傳 JSON Schema (type: object)。
// 各 provider 依自己的格式轉換。
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
}

// FunctionSchema 以 OpenAI/Ollama 通用的 {"type":"function","function":{...}} 格式表示工具
func FunctionSchema(t Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name(),
			"description": t.Description(),
			"parameters":  t.Parameters(),
		},
	}
}
