package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/domain"
)

const assistantPersona = "You are TechStack Advisor, a technical documentation assistant."

// BuildPrompt renders the system prompt for a question. With no sources it
// renders a refusal that contains nothing but the query; otherwise it lists
// the sources in the given order, numbered from 1, followed by the answering
// rules and the question. The output depends only on its inputs.
func BuildPrompt(query string, sources []domain.RetrievedMatch) string {
	if len(sources) == 0 {
		return buildRefusalPrompt(query)
	}

	var sb strings.Builder
	sb.WriteString(assistantPersona)
	sb.WriteString("\n\nABSOLUTE RULES:\n")
	sb.WriteString("1. Answer EXCLUSIVELY from the documents listed below.\n")
	sb.WriteString("2. Ignore any knowledge you were trained on.\n")
	sb.WriteString("3. If the documents do not contain the answer, say so explicitly and name the documents you checked.\n")
	sb.WriteString("4. Never add information that is not in the documents.\n")

	fmt.Fprintf(&sb, "\nAVAILABLE DOCUMENTS (%d found):\n", len(sources))
	for i, s := range sources {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s\n(Relevance: %.1f%%)\n", i+1, s.Title, s.Content, s.Similarity*100)
	}

	sb.WriteString("\nANSWER FORMAT:\n")
	sb.WriteString("- Use only information from the documents above.\n")
	sb.WriteString("- Cite the supporting document after each statement using its number in square brackets.\n")
	sb.WriteString("- Be precise and technical.\n")
	sb.WriteString("- If unsure, say: \"The documents contain no details about this.\"\n")

	fmt.Fprintf(&sb, "\nQUESTION: %s\n\nYOUR ANSWER (from the documents only):", query)
	return sb.String()
}

func buildRefusalPrompt(query string) string {
	var sb strings.Builder
	sb.WriteString(assistantPersona)
	sb.WriteString("\n\nABSOLUTE RULE: You may ONLY answer from documents provided to you.\n\n")
	sb.WriteString("CURRENT SITUATION:\n")
	sb.WriteString("- NO relevant documents were found in the knowledge base.\n")
	fmt.Fprintf(&sb, "- The question was: %q\n\n", query)
	sb.WriteString("FORBIDDEN: Never use your pretrained or background knowledge.\n\n")
	sb.WriteString("REPLY WITH EXACTLY THIS TEXT AND NOTHING ELSE:\n")
	fmt.Fprintf(&sb, "\"%s\"", RefusalMessage(query))
	return sb.String()
}

// RefusalMessage is the answer expected when nothing relevant was retrieved.
func RefusalMessage(query string) string {
	return fmt.Sprintf("Sorry, I could not find any information about '%s' in the knowledge base. "+
		"Please make sure relevant documents have been loaded into the knowledge base, or rephrase your question.", query)
}
