package openai

import (
	"strings"
)

const MODERATION_SYSTEM = `You are a content moderation engine for a publishing platform.
You must output ONLY valid JSON and nothing else.
No markdown. No comments. No extra keys.
Judge the content against the platform policy: no hate speech, harassment, sexual content involving minors,
credible threats, spam, or instructions for serious harm.`

const MODERATION_USER_TEMPLATE = `Decide whether the content below may be published.
Return JSON that matches EXACTLY this shape:
{"verdict": "approve" | "reject", "reason": string, "categories": [string], "confidence": number}

Rules:
- Output JSON only.
- verdict must be "approve" or "reject".
- reason must be empty when approving and must name the violation when rejecting.
- categories lists the policy areas that were violated; empty when approving.
- confidence must be a number between 0 and 1.

Content type: {{CONTENT_TYPE}}
Title: {{TITLE}}

Content text:
{{CONTENT_TEXT}}

Return JSON only.`

const REPAIR_SYSTEM = `You are a strict JSON repair engine.
You receive an output that failed parsing or schema validation.
You must return ONLY corrected JSON that matches the provided shape exactly.
No markdown. No commentary. No extra keys. No surrounding text.`

const REPAIR_USER_TEMPLATE = `The previous model output was invalid or did not match the expected shape.

Expected shape:
{"verdict": "approve" | "reject", "reason": string, "categories": [string], "confidence": number}

Parse error:
{{PARSE_ERROR}}

Invalid output:
{{MODEL_OUTPUT}}

Fix the output so it matches the shape exactly.
Return JSON only.`

func RenderTemplate(tpl string, vars map[string]string) string {
	rendered := tpl
	for k, v := range vars {
		rendered = strings.ReplaceAll(rendered, "{{"+k+"}}", v)
	}
	return rendered
}

func BuildModerationUserPrompt(contentType, title, text string) string {
	return RenderTemplate(MODERATION_USER_TEMPLATE, map[string]string{
		"CONTENT_TYPE": contentType,
		"TITLE":        title,
		"CONTENT_TEXT": text,
	})
}

func BuildRepairUserPrompt(modelOutput string, parseErr error) string {
	msg := ""
	if parseErr != nil {
		msg = parseErr.Error()
	}
	return RenderTemplate(REPAIR_USER_TEMPLATE, map[string]string{
		"PARSE_ERROR":  msg,
		"MODEL_OUTPUT": modelOutput,
	})
}
