package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
)

// Languages understood by the knowledge base.
const (
	LangAuto    = "auto"
	LangChinese = "zh"
	LangEnglish = "en"
)

// DefaultTopK is how many passages are retrieved when the step does not say.
const DefaultTopK = 5

const promptZH = `You are a professional structural engineering assistant. Below are relevant paragraphs retrieved from the knowledge base.

Answer the user's question only using this material. If it is not mentioned, clearly state "The material does not contain this information."

== Knowledge Base Paragraphs ==
%s

== User Question ==
%s

== Answer ==
`

const promptEN = `You are a professional assistant in structural engineering. You are given several reference paragraphs from a domain knowledge base.

Your job is to answer the user's question strictly based on the retrieved context below. If the answer is not present, clearly say "The knowledge base does not contain this information."

You may summarize or rephrase content, but do not invent or hallucinate.

== Retrieved Context ==
%s

== User Question ==
%s

== Your Answer ==
`

type ragArgs struct {
	Query string `mapstructure:"query"`
	Lang  string `mapstructure:"lang"`
	TopK  int    `mapstructure:"top_k"`
}

// RAGAnswer returns the knowledge base question answering tool.
func RAGAnswer(deps Deps) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		var a ragArgs
		if err := decodeArgs(args, &a); err != nil {
			return domain.Failure("Answer failed", err), nil
		}
		a.Query = strings.TrimSpace(a.Query)
		if a.Query == "" {
			return required(domain.ToolRAG, "query"), nil
		}
		if a.Lang == "" || a.Lang == LangAuto {
			a.Lang = DetectLang(a.Query)
		}
		if a.TopK <= 0 {
			a.TopK = DefaultTopK
		}
		if deps.Retriever == nil || deps.Answerer == nil {
			return domain.Failure("Answer failed", fmt.Errorf("no knowledge base configured")), nil
		}

		passages, err := deps.Retriever.Retrieve(ctx, a.Query, a.Lang, a.TopK)
		if err != nil {
			return domain.Failure("Answer failed", fmt.Errorf("retrieval: %w", err)), nil
		}
		contextText := FormatContext(passages, a.Lang)
		deps.logger().DebugContext(ctx, "Retrieved passages", "count", len(passages), "lang", a.Lang)

		answer, err := deps.Answerer.Answer(ctx, BuildPrompt(a.Query, contextText, a.Lang))
		if err != nil {
			return domain.Failure("Answer failed", fmt.Errorf("generation: %w", err)), nil
		}

		return domain.Success("Answered using the knowledge base", map[string]any{
			"answer":  strings.TrimSpace(answer),
			"lang":    a.Lang,
			"sources": len(passages),
		}), nil
	}
}

// DetectLang returns zh when text contains any Han character, en otherwise.
func DetectLang(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return LangChinese
		}
	}
	return LangEnglish
}

// FormatContext numbers passages for a prompt, using the fields of lang.
func FormatContext(passages []Passage, lang string) string {
	blocks := make([]string, 0, len(passages))
	for i, p := range passages {
		source := p.Source
		if source == "" {
			source = "unknown"
		}
		section, text := p.SectionEN, p.TextEN
		if lang == LangChinese {
			section, text = p.SectionZH, p.TextZH
		}
		if section == "" {
			section = "N/A"
		}
		blocks = append(blocks, fmt.Sprintf("[%d] Source: %s | Section: %s\n%s", i+1, source, section, strings.TrimSpace(text)))
	}
	return strings.Join(blocks, "\n\n")
}

// BuildPrompt renders the answer prompt for lang.
func BuildPrompt(query, contextText, lang string) string {
	if lang == LangChinese {
		return fmt.Sprintf(promptZH, contextText, query)
	}
	return fmt.Sprintf(promptEN, contextText, query)
}
