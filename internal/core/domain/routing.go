package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// RoutingTool is the closed set of retrieval strategies.
type RoutingTool string

// Routing tools. Unknown dispatches exactly like LLM.
const (
	ToolRAG      RoutingTool = "RAG"
	ToolInternet RoutingTool = "INTERNET"
	ToolScraping RoutingTool = "SCRAPING"
	ToolLLM      RoutingTool = "LLM"
	ToolUnknown  RoutingTool = "UNKNOWN"
)

// ParseRoutingTool maps a classifier label to a tool. Matching is
// case-insensitive; "SCRAP" is accepted for SCRAPING.
func ParseRoutingTool(s string) RoutingTool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RAG":
		return ToolRAG
	case "INTERNET":
		return ToolInternet
	case "SCRAPING", "SCRAP":
		return ToolScraping
	case "LLM":
		return ToolLLM
	default:
		return ToolUnknown
	}
}

// String returns the tool label.
func (t RoutingTool) String() string {
	return string(t)
}

// Description returns a short human-readable label.
func (t RoutingTool) Description() string {
	switch t {
	case ToolRAG:
		return "knowledge base"
	case ToolInternet:
		return "web search"
	case ToolScraping:
		return "page extraction"
	case ToolLLM:
		return "language model"
	default:
		return "language model (unrecognised route)"
	}
}

// RoutingDecision is the classifier output for one query.
type RoutingDecision struct {
	Tool RoutingTool
	URLs []string
}

type routingWire struct {
	Tool string   `json:"tool"`
	URLs []string `json:"urls"`
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
)

// ParseRoutingDecision decodes a classifier response of the form
// {"tool": "...", "urls": [...]}. Reasoning blocks and markdown fences are
// stripped first, and the first JSON object in the text is used. A response
// consisting of a single known tool word is also accepted.
// Malformed responses fail with ErrClassification.
func ParseRoutingDecision(raw string) (RoutingDecision, error) {
	text := thinkBlock.ReplaceAllString(raw, "")
	if i := strings.LastIndex(text, "</think>"); i >= 0 {
		text = text[i+len("</think>"):]
	}
	text = strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	start := strings.Index(text, "{")
	if start < 0 {
		word := strings.Trim(text, " \t\r\n.\"'`")
		if tool := ParseRoutingTool(word); tool != ToolUnknown {
			return RoutingDecision{Tool: tool}, nil
		}
		return RoutingDecision{}, fmt.Errorf("%w: no JSON object in %q", ErrClassification, truncate(raw, 80))
	}

	var wire routingWire
	dec := json.NewDecoder(bytes.NewReader([]byte(text[start:])))
	if err := dec.Decode(&wire); err != nil {
		return RoutingDecision{}, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	if strings.TrimSpace(wire.Tool) == "" {
		return RoutingDecision{}, fmt.Errorf("%w: missing tool", ErrClassification)
	}

	urls := make([]string, 0, len(wire.URLs))
	for _, u := range wire.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return RoutingDecision{Tool: ParseRoutingTool(wire.Tool), URLs: urls}, nil
}

// FirstURL returns the first URL of the decision, or "".
func (d RoutingDecision) FirstURL() string {
	if len(d.URLs) == 0 {
		return ""
	}
	return d.URLs[0]
}

// GroundedAnswer is a model response plus the sources it was built from.
type GroundedAnswer struct {
	Text    string
	Sources []SourceRef
}

// Answer is the sendable result of one orchestrated turn.
// Every turn produces one, even when all branches fail.
type Answer struct {
	// Text is the response shown to the user.
	Text string `json:"text"`

	// Tool is the branch that produced Text.
	Tool RoutingTool `json:"tool"`

	// Sources lists attributions for Text.
	Sources []SourceRef `json:"sources,omitempty"`

	// Notices holds redirection and fallback messages for the user.
	Notices []string `json:"notices,omitempty"`

	// FellBack is true when Text came from the INTERNET fallback.
	FellBack bool `json:"fell_back"`
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
