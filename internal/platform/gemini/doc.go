// Package gemini implements generation.Agent on top of Google's Gemini API.
//
// Two prompts drive the agent: one drafts a quiz from parsed file contents,
// the other rates a drafted quiz for offensiveness and educational value.
// Both are text/template files embedded in the binary and may be replaced
// at startup through the llm.quiz_prompt_path and llm.safety_prompt_path
// settings. Responses are requested as JSON and validated before they are
// returned; anything unusable is reported as generation.ErrInvalidResponse
// so the generation loop can retry.
package gemini
