package app

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// Explanations use GFM tables; raw HTML from the model is not passed through.
	explanationMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))
	// Question prompts keep the model's line breaks.
	promptMarkdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))
)

// RenderMarkdown converts LLM markdown (tables, fenced code) to HTML.
func RenderMarkdown(src string) (string, error) {
	return render(explanationMarkdown, src)
}

// RenderPrompt converts a question prompt to HTML, turning newlines into <br>.
func RenderPrompt(src string) (string, error) {
	return render(promptMarkdown, src)
}

func render(md goldmark.Markdown, src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
