// Package netmon classifies outbound TCP connections against known AI
// service endpoints. Connection listing shells out to lsof, with a process
// table fallback when the utility is unavailable.
package netmon

import (
	"fmt"
	"strings"
	"time"
)

// Tier is the confidence of a network classification. Unlike process
// detections, every tier is retained and published, informational included;
// filtering is the consumer's call.
type Tier string

const (
	TierDefinitive    Tier = "definitive"
	TierSuspicious    Tier = "suspicious"
	TierInformational Tier = "informational"
)

// Result is one classified outbound connection.
type Result struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessName       string    `json:"process_name"`
	ProcessPath       string    `json:"process_path,omitempty"`
	PID               int32     `json:"pid"`
	DestinationDomain string    `json:"destination_domain"`
	DestinationPort   int       `json:"destination_port"`
	Protocol          string    `json:"protocol"`
	Confidence        Tier      `json:"confidence"`
	Message           string    `json:"message"`
	Evidence          []string  `json:"evidence"`
}

// definitiveDomains are exact LLM API endpoints. A host containing one of
// these is a direct model-API connection, no inference needed.
var definitiveDomains = []string{
	"api.openai.com",
	"api.anthropic.com",
	"chat.openai.com",
	"chatgpt.com",
	"claude.ai",
	"api.mistral.ai",
	"api.groq.com",
	"api.cohere.com",
	"api.perplexity.ai",
	"openrouter.ai",
	"api.together.xyz",
	"api.deepseek.com",
	"generativelanguage.googleapis.com",
}

// suspiciousDomains are broader AI and ML infrastructure hosts.
var suspiciousDomains = []string{
	"openai.com",
	"anthropic.com",
	"gemini.google.com",
	"bard.google.com",
	"huggingface.co",
	"replicate.com",
	"deepseek.com",
	"x.ai",
	"mistral.ai",
	"perplexity.ai",
	"poe.com",
	"cohere.com",
}

// suspiciousHostKeywords intentionally include very short fragments. They
// produce noisy suspicious-tier hits on purpose; precision lives in the
// domain lists above.
var suspiciousHostKeywords = []string{
	"ai",
	"gpt",
	"claude",
	"llm",
	"openai",
	"anthropic",
	"gemini",
	"copilot",
	"chatbot",
}

// AnalyzeDestination classifies a remote host. The host is matched lowercase
// by substring: definitive domains first, then suspicious domains, then bare
// keywords. Anything else is informational.
func AnalyzeDestination(host string, port int) (Tier, []string) {
	lower := strings.ToLower(host)

	for _, domain := range definitiveDomains {
		if strings.Contains(lower, domain) {
			return TierDefinitive, []string{
				fmt.Sprintf("destination matches LLM API domain %s (TCP port %d)", domain, port),
			}
		}
	}
	for _, domain := range suspiciousDomains {
		if strings.Contains(lower, domain) {
			return TierSuspicious, []string{
				fmt.Sprintf("destination matches AI service domain %s (TCP port %d)", domain, port),
			}
		}
	}
	for _, keyword := range suspiciousHostKeywords {
		if strings.Contains(lower, keyword) {
			return TierSuspicious, []string{
				fmt.Sprintf("destination hostname contains keyword %q (TCP port %d)", keyword, port),
			}
		}
	}
	return TierInformational, []string{
		fmt.Sprintf("established TCP connection to %s:%d", host, port),
	}
}
