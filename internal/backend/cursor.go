package backend

import "encoding/json"

// cursor emits a single JSON object but has shipped several key names for
// the same semantic fields across versions; accept the first present in a
// fixed priority order.

var (
	cursorTextKeys    = []string{"result", "response", "text", "output"}
	cursorSessionKeys = []string{"session_id", "chat_id", "thread_id"}
)

func init() {
	Register(Backend{
		Name:             "cursor",
		BuildArgs:        cursorBuildArgs,
		Parse:            cursorParse,
		DecodeStreamLine: cursorDecodeStreamLine,
	})
}

func cursorBuildArgs(cmd Command, prompt, continuationID string) []string {
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

func cursorParse(stdout, stderr string, exitCode int) Response {
	var payload map[string]any
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return rawResponse(stdout)
	}
	return Response{
		Text:           firstString(payload, cursorTextKeys...),
		ContinuationID: firstString(payload, cursorSessionKeys...),
		Raw:            stdout,
	}
}

func cursorDecodeStreamLine(line string) (Delta, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return Delta{}, false
	}
	d := Delta{
		Text:     firstString(payload, cursorTextKeys...),
		Thinking: firstString(payload, "reasoning", "thinking"),
	}
	return d, d.Text != "" || d.Thinking != ""
}
