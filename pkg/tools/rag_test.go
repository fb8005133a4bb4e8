package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	lang string
	topK int
	err  error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query, lang string, topK int) ([]tools.Passage, error) {
	r.lang, r.topK = lang, topK
	if r.err != nil {
		return nil, r.err
	}
	return []tools.Passage{
		{Source: "GB50010", SectionEN: "7.1", SectionZH: "七", TextEN: " Cracks wider than 0.3 mm need repair. ", TextZH: "裂缝宽度大于0.3毫米需修补。"},
		{TextEN: "Monitor crack growth."},
	}, nil
}

type fakeAnswerer struct{ prompt string }

func (a *fakeAnswerer) Answer(ctx context.Context, prompt string) (string, error) {
	a.prompt = prompt
	return "  Repair them.  ", nil
}

func TestRAGAnswer(t *testing.T) {
	ret := &fakeRetriever{}
	ans := &fakeAnswerer{}
	tool := tools.RAGAnswer(tools.Deps{Retriever: ret, Answerer: ans})

	res, err := tool(context.Background(), map[string]any{"query": "When must a crack be repaired?"})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, res.Status)
	assert.Equal(t, "Repair them.", res.Outputs["answer"])
	assert.Equal(t, "en", res.Outputs["lang"])
	assert.Equal(t, tools.DefaultTopK, ret.topK)
	assert.Contains(t, ans.prompt, "[1] Source: GB50010 | Section: 7.1\nCracks wider than 0.3 mm need repair.")
	assert.Contains(t, ans.prompt, "[2] Source: unknown | Section: N/A\nMonitor crack growth.")
	assert.Contains(t, ans.prompt, "== User Question ==\nWhen must a crack be repaired?")

	res, err = tool(context.Background(), map[string]any{"query": "裂缝何时需要修补？", "top_k": "2"})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, res.Status)
	assert.Equal(t, "zh", ret.lang)
	assert.Equal(t, 2, ret.topK)
	assert.Contains(t, ans.prompt, "[1] Source: GB50010 | Section: 七\n裂缝宽度大于0.3毫米需修补。")
	assert.Contains(t, ans.prompt, "== Knowledge Base Paragraphs ==")
}

func TestRAGAnswer_Failures(t *testing.T) {
	res, err := tools.RAGAnswer(tools.Deps{})(context.Background(), map[string]any{"query": "  "})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Status)

	res, err = tools.RAGAnswer(tools.Deps{})(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Status)

	ret := &fakeRetriever{err: errors.New("index offline")}
	res, err = tools.RAGAnswer(tools.Deps{Retriever: ret, Answerer: &fakeAnswerer{}})(context.Background(), map[string]any{"query": "q", "lang": "en"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultError, res.Status)
	assert.Contains(t, res.Error, "index offline")
}

func TestDetectLang(t *testing.T) {
	assert.Equal(t, "zh", tools.DetectLang("最大宽度 of img01"))
	assert.Equal(t, "en", tools.DetectLang("max width of img01"))
	assert.Equal(t, "en", tools.DetectLang(""))
}
