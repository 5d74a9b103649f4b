// Package payload defines the job payload shapes carried from the API service
// to the worker service through the jobs table.
package payload

import "encoding/json"

// STT parameters for a speech-to-text job.
type STT struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

// Translate parameters for a chunked translation job. InputFile names an
// artifact holding the source text. The endpoint descriptor travels with the
// job because the server keeps no global LLM configuration.
type Translate struct {
	InputFile    string `json:"input_file"`
	TargetLang   string `json:"target_lang"`
	SrcLang      string `json:"src_lang"`
	Provider     string `json:"provider"`
	APIURL       string `json:"api_url"`
	APIKey       string `json:"api_key"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func Decode(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
