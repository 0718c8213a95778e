package backend

import "encoding/json"

// claude_code prints a single JSON object on completion and streams
// assistant events as JSONL when wrapped with a scratch file.

func init() {
	Register(Backend{
		Name:             "claude_code",
		BuildArgs:        claudeBuildArgs,
		Parse:            claudeParse,
		DecodeStreamLine: claudeDecodeStreamLine,
	})
}

func claudeBuildArgs(cmd Command, prompt, continuationID string) []string {
	argv := splitCLI(cmd.CLI)
	if continuationID != "" {
		flag := cmd.ResumeFlag
		if flag == "" {
			flag = "--resume"
		}
		argv = append(argv, flag, continuationID)
	}
	return append(argv, prompt)
}

func claudeParse(stdout, stderr string, exitCode int) Response {
	var payload map[string]any
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return rawResponse(stdout)
	}
	return Response{
		Text:           firstString(payload, "result"),
		ContinuationID: firstString(payload, "session_id"),
		Raw:            stdout,
	}
}

// claudeDecodeStreamLine handles stream-json events: assistant messages
// carry a content array of text and thinking blocks.
func claudeDecodeStreamLine(line string) (Delta, bool) {
	var ev struct {
		Type    string `json:"type"`
		Message struct {
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				Thinking string `json:"thinking"`
			} `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Type != "assistant" {
		return Delta{}, false
	}
	var d Delta
	for _, block := range ev.Message.Content {
		switch block.Type {
		case "text":
			d.Text += block.Text
		case "thinking":
			d.Thinking += block.Thinking
		}
	}
	return d, d.Text != "" || d.Thinking != ""
}
