package backend

import (
	"encoding/json"
	"strings"
)

// codex emits newline-delimited JSON events. The answer is the
// concatenation of all completed agent_message texts in emission order;
// the continuation id comes from the thread.started event. Resume is
// subcommand-based ("resume <id>"), not flag-based.

func init() {
	Register(Backend{
		Name:             "codex",
		BuildArgs:        codexBuildArgs,
		Parse:            codexParse,
		DecodeStreamLine: codexDecodeStreamLine,
	})
}

type codexEvent struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Item     struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"item"`
}

func codexBuildArgs(cmd Command, prompt, continuationID string) []string {
	argv := splitCLI(cmd.CLI)
	if continuationID != "" {
		argv = append(argv, "resume", continuationID)
	}
	return append(argv, prompt)
}

func codexParse(stdout, stderr string, exitCode int) Response {
	var texts []string
	var continuation string
	sawEvent := false
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev codexEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		sawEvent = true
		switch ev.Type {
		case "thread.started":
			continuation = ev.ThreadID
		case "item.completed":
			if ev.Item.Type == "agent_message" && ev.Item.Text != "" {
				texts = append(texts, ev.Item.Text)
			}
		}
	}
	if !sawEvent {
		return rawResponse(stdout)
	}
	return Response{
		Text:           strings.Join(texts, "\n"),
		ContinuationID: continuation,
		Raw:            stdout,
	}
}

func codexDecodeStreamLine(line string) (Delta, bool) {
	var ev codexEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Type != "item.completed" {
		return Delta{}, false
	}
	switch ev.Item.Type {
	case "agent_message":
		return Delta{Text: ev.Item.Text + "\n"}, ev.Item.Text != ""
	case "reasoning":
		return Delta{Thinking: ev.Item.Text + "\n"}, ev.Item.Text != ""
	}
	return Delta{}, false
}
