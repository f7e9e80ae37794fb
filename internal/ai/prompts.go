package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/extract_posting.md
var extractPromptRaw string

// ExtractTemplate is the parsed prompt for posting extraction. Its data is a
// model.RawPost.
var ExtractTemplate = template.Must(template.New("extract_posting").Parse(extractPromptRaw))
