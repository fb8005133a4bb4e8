package plan

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/cracklens/pkg/domain"
)

var (
	segmentWords   = []string{"segment", "detect", "分割", "检测"}
	quantifyWords  = []string{"quantify", "measure", "geometry", "metric", "量化", "测量"}
	generateWords  = []string{"save", "generate", "create", "draw", "保存", "生成"}
	visualizeWords = []string{"visualize", "visualise", "show", "display", "plot", "显示", "展示"}
	compareWords   = []string{"compare", "evaluate", "accuracy", "比较", "对比"}
	knowledgeWords = []string{
		"advice", "summary", "suggestion", "standard", "规范", "as3735", "as3600",
		"crack width limit", "what is", "how does", "why", "limitation", "definition",
		"explanation", "allowable", "规定", "explain",
	}

	ordinals = map[string]int{
		"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4,
		"sixth": 5, "seventh": 6, "eighth": 7, "ninth": 8, "tenth": 9,
	}

	allPattern     = regexp.MustCompile(`\b(all|every|each)\b|所有|全部`)
	ordinalPattern = regexp.MustCompile(`\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last)\b`)
	numberPattern  = regexp.MustCompile(`(?:\b(?:images?|img|pictures?|photos?|cracks?|no\.?)\s*#?\s*|#|第\s*)(\d+)`)
	pixelPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mm\s*(?:/|per)\s*(?:px|pixel)|pixel[\s_]*size(?:[\s_]*mm)?\s*(?:=|:|of|is)?\s*(\d+(?:\.\d+)?)`)
	gtPattern      = regexp.MustCompile(`\bgt\b|ground[\s_]*truth`)
)

// KeywordPlanner reads requests with keyword rules. It needs no model and is the
// fallback when no external planner is configured. Image numbers in text are one
// based ("image 2" is index 1); ordinals are converted the same way.
type KeywordPlanner struct{}

// Plan implements Planner. Text with no recognized action becomes a chat intent.
func (KeywordPlanner) Plan(ctx context.Context, text string) ([]Intent, error) {
	lower := strings.ToLower(text)
	targets := parseTargets(lower)
	pixel := parsePixelSize(lower)
	visuals := ParseVisualTypes(lower)

	var intents []Intent
	add := func(action string, words []string, fill func(*Intent)) {
		if !containsAny(lower, words) {
			return
		}
		in := Intent{Action: action, TargetIndices: targets}
		if fill != nil {
			fill(&in)
		}
		intents = append(intents, in)
	}

	add(ActionSegment, segmentWords, nil)
	add(ActionQuantify, quantifyWords, func(in *Intent) {
		in.PixelSizeMM = pixel
		in.Metrics = parseMetrics(lower)
	})
	add(ActionGenerate, generateWords, func(in *Intent) {
		in.PixelSizeMM = pixel
		in.VisualTypes = derivedOnly(visuals)
	})
	add(ActionVisualize, visualizeWords, func(in *Intent) {
		in.VisualTypes = visuals
	})
	add(ActionCompare, compareWords, func(in *Intent) {
		in.TargetIndices = nil
	})

	if containsAny(lower, knowledgeWords) || len(intents) == 0 {
		intents = append(intents, Intent{
			Action: ActionChat,
			Tool:   domain.ToolRAG,
			Args:   map[string]any{"query": strings.TrimSpace(text)},
		})
	}
	return intents, nil
}

// ParseVisualTypes lists the display layers named in text.
func ParseVisualTypes(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	if strings.Contains(lower, "original") || strings.Contains(lower, "原图") {
		out = append(out, domain.LayerOriginal)
	}
	if gtPattern.MatchString(lower) {
		out = append(out, domain.LayerGroundTruth)
	}
	if strings.Contains(lower, "mask") || strings.Contains(lower, "prediction") || strings.Contains(lower, "掩膜") {
		out = append(out, domain.LayerMask)
	}
	if strings.Contains(lower, "skeleton") || strings.Contains(lower, "骨架") {
		out = append(out, domain.LayerSkeleton)
	}
	if strings.Contains(lower, "max width") || strings.Contains(lower, "width map") || strings.Contains(lower, "最大宽度") {
		out = append(out, domain.LayerMaxWidth)
	}
	if strings.Contains(lower, "normal") || strings.Contains(lower, "法线") {
		out = append(out, domain.LayerNormals)
	}
	return out
}

func parseTargets(lower string) []any {
	if allPattern.MatchString(lower) {
		return []any{"all"}
	}
	var out []any
	for _, m := range ordinalPattern.FindAllStringSubmatch(lower, -1) {
		if m[1] == "last" {
			out = append(out, "last")
			continue
		}
		out = append(out, ordinals[m[1]])
	}
	for _, m := range numberPattern.FindAllStringSubmatch(lower, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			out = append(out, n-1)
		}
	}
	return out
}

func parsePixelSize(lower string) *float64 {
	m := pixelPattern.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func parseMetrics(lower string) []string {
	var out []string
	if strings.Contains(lower, "length") || strings.Contains(lower, "长度") {
		out = append(out, domain.MetricLength)
	}
	if strings.Contains(lower, "area") || strings.Contains(lower, "面积") {
		out = append(out, domain.MetricArea)
	}
	if strings.Contains(lower, "max width") || strings.Contains(lower, "max_width") || strings.Contains(lower, "最大宽度") {
		out = append(out, domain.MetricMaxWidth)
	}
	if strings.Contains(lower, "avg width") || strings.Contains(lower, "average width") || strings.Contains(lower, "平均宽度") {
		out = append(out, domain.MetricAvgWidth)
	}
	return out
}

func derivedOnly(layers []string) []string {
	var out []string
	for _, l := range layers {
		switch l {
		case domain.LayerSkeleton, domain.LayerMaxWidth, domain.LayerNormals:
			out = append(out, l)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
