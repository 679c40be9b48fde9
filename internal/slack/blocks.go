package slack

// Minimal Block Kit payload types, just enough to render search results.

type Block struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SectionBlock returns a section rendered as Slack markdown.
func SectionBlock(markdown string) Block {
	return Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: markdown}}
}

// HeaderBlock returns a plain-text header.
func HeaderBlock(text string) Block {
	return Block{Type: "header", Text: &TextObject{Type: "plain_text", Text: text}}
}

func DividerBlock() Block {
	return Block{Type: "divider"}
}
