package conversation

import (
	"encoding/json"
	"strings"

	"github.com/ziadkadry99/pdfchat/internal/llm"
	"github.com/ziadkadry99/pdfchat/internal/session"
)

// NotInDocument is the answer the model is told to give when the retrieved
// context does not contain the answer.
const NotInDocument = "I don't have that information in the uploaded document."

const contextPlaceholder = "{context}"

func documentTemplate(lang Language) string {
	return "You are a helpful AI assistant. " + lang.Directive() + `
Use the following context from the uploaded PDF document to answer the question comprehensively.
Provide detailed, complete answers based on all the relevant information in the context.
If the answer is not in the context, say "` + NotInDocument + `"

Reply with a JSON object of the form {"answer": "..."} and nothing else.

Context:
` + contextPlaceholder
}

func generalTemplate(lang Language) string {
	return "You are a helpful AI assistant. " + lang.Directive() + `
Answer the following question to the best of your ability.`
}

// newConversation picks the template for key.
func newConversation(key session.Key, lang Language) *session.Conversation {
	if key.HasDocument() {
		return session.NewConversation(key, session.ModeDocument, documentTemplate(lang))
	}
	return session.NewConversation(key, session.ModeGeneral, generalTemplate(lang))
}

// buildMessages renders the system prompt, the rolling history as
// alternating turns, then the question.
func buildMessages(conv *session.Conversation, passages []string, question string) []llm.Message {
	system := conv.Template
	if conv.Mode == session.ModeDocument {
		system = strings.Replace(system, contextPlaceholder, strings.Join(passages, "\n\n"), 1)
	}

	msgs := make([]llm.Message, 0, 2+2*len(conv.History))
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, t := range conv.History {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: t.Question},
			llm.Message{Role: llm.RoleAssistant, Content: t.Answer},
		)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: question})
}

// parseAnswer extracts the answer field of a JSON reply. Replies that are
// not JSON, possibly wrapped in a code fence, are returned trimmed.
func parseAnswer(raw string) string {
	text := strings.TrimSpace(raw)
	body := text
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		var out struct {
			Answer *string `json:"answer"`
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &out); err == nil && out.Answer != nil {
			return strings.TrimSpace(*out.Answer)
		}
	}
	return text
}

func turnTokens(t session.Turn) int {
	return llm.EstimateTokens(t.Question) + llm.EstimateTokens(t.Answer)
}
