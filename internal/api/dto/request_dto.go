package dto

// CreateSTTRequest starts a speech-to-text job for a YouTube URL.
type CreateSTTRequest struct {
	URL   string `json:"url" binding:"required"`
	Model string `json:"model"`
}

// LLMParams is the per-request endpoint descriptor shared by the translation
// endpoints. The server holds no global LLM configuration.
type LLMParams struct {
	Provider string `json:"provider"`
	APIURL   string `json:"api_url" binding:"required"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model" binding:"required"`
}

type CreateTranslationRequest struct {
	InputFile  string `json:"input_file"`
	Text       string `json:"text"`
	TargetLang string `json:"target_lang" binding:"required"`
	SrcLang    string `json:"src_lang"`
	YoutubeURL string `json:"youtube_url"`
	LLMParams
}

type SimpleTranslationRequest struct {
	Text         string `json:"text" binding:"required"`
	TargetLang   string `json:"target_lang" binding:"required"`
	SrcLang      string `json:"src_lang"`
	SystemPrompt string `json:"system_prompt"`
	LLMParams
}

type SimpleTranslationResponse struct {
	TranslatedText string `json:"translated_text"`
	Job            JobDTO `json:"job"`
}

type FileTranslationResponse struct {
	TranslatedText string `json:"translated_text"`
	OriginalText   string `json:"original_text"`
	Job            JobDTO `json:"job"`
}

type ConvertReleaseNoteRequest struct {
	InputText string `json:"input_text" binding:"required"`
	LLMParams
}

type TemplateRequest struct {
	SystemPrompt       string `json:"system_prompt" binding:"required"`
	UserPromptTemplate string `json:"user_prompt_template" binding:"required"`
}
