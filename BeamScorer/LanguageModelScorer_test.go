package BeamScorer

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"ctc/LanguageModel"

	"github.com/stretchr/testify/require"
)

// --- 计数假模型 ---
// 用来验证"昂贵的模型调用只在词边界/句尾发生，且次数精确"这一类契约

type fakeState struct {
	Prev LanguageModel.WordIndex
}

const (
	fakeBOS LanguageModel.WordIndex = 0
	fakeCat LanguageModel.WordIndex = 1
	fakeCar LanguageModel.WordIndex = 2
	fakeEOS LanguageModel.WordIndex = 90
	fakeUnk LanguageModel.WordIndex = 99
)

type fakeVocab struct{}

func (fakeVocab) Index(word string) LanguageModel.WordIndex {
	switch word {
	case "cat":
		return fakeCat
	case "car":
		return fakeCar
	}
	return fakeUnk
}

func (fakeVocab) EndSentence() LanguageModel.WordIndex {
	return fakeEOS
}

type countingModel struct {
	calls  int
	scored []LanguageModel.WordIndex
}

func (m *countingModel) BeginSentenceState() fakeState {
	return fakeState{Prev: fakeBOS}
}

func (m *countingModel) FullScore(in fakeState, word LanguageModel.WordIndex) (float64, fakeState) {
	m.calls++
	m.scored = append(m.scored, word)
	return -2.0, fakeState{Prev: word}
}

func (m *countingModel) Vocabulary() LanguageModel.Vocabulary {
	return fakeVocab{}
}

func newLMScorer(t *testing.T) (*LanguageModelScorer[fakeState], *countingModel) {
	t.Helper()
	model := &countingModel{}
	s, err := NewLanguageModelScorerFromTrie[fakeState](DefaultConfig(), model, buildCatCarTrie(t))
	require.NoError(t, err)
	return s, model
}

func TestLMScorerPrefixLikelihood(t *testing.T) {
	s, model := newLMScorer(t)

	// "cat": 前缀分 = log10(前缀累积词频 / 根词频)
	states := runLabels(s, wordLabels(t, "cat"))

	require.InDelta(t, 0.0, states[1].Score, 1e-9) // "c": log10(8/8)
	require.InDelta(t, 0.0, states[2].Score, 1e-9) // "ca": log10(8/8)
	require.InDelta(t, math.Log10(5.0/8.0), states[3].Score, 1e-9) // "cat": log10(5/8)

	require.Equal(t, "c", states[1].IncompleteWord)
	require.Equal(t, "ca", states[2].IncompleteWord)
	require.Equal(t, "cat", states[3].IncompleteWord)
	require.NotNil(t, states[3].IncompleteWordTrieNode)

	// 逐字母推进期间绝不触发模型调用
	require.Equal(t, 0, model.calls)
}

func TestLMScorerUnknownPrefixFallback(t *testing.T) {
	s, model := newLMScorer(t)

	// "cxa": 'x' 一步就落到兜底分 -10，游标失效后保持失效
	states := runLabels(s, wordLabels(t, "cxa"))

	require.Nil(t, states[2].IncompleteWordTrieNode)
	require.InDelta(t, -10.0, states[2].Score, 1e-9)
	require.InDelta(t, -10.0, states[2].DeltaScore, 1e-9) // 从 0 掉到 -10

	require.Nil(t, states[3].IncompleteWordTrieNode)
	require.InDelta(t, -10.0, states[3].Score, 1e-9)
	require.InDelta(t, 0.0, states[3].DeltaScore, 1e-9)

	require.Equal(t, 0, model.calls)
}

func TestLMScorerBlankAndRepeat(t *testing.T) {
	s, _ := newLMScorer(t)

	var root LanguageModelBeamState[fakeState]
	s.InitializeState(&root)

	var afterC LanguageModelBeamState[fakeState]
	s.ExpandState(&root, -1, &afterC, 2) // 'c'

	// blank：除 DeltaScore 清零外全部原样
	var afterBlank LanguageModelBeamState[fakeState]
	s.ExpandState(&afterC, 2, &afterBlank, BlankLabel)
	require.Equal(t, afterC.Score, afterBlank.Score)
	require.Equal(t, afterC.LanguageModelScore, afterBlank.LanguageModelScore)
	require.Equal(t, afterC.IncompleteWord, afterBlank.IncompleteWord)
	require.Equal(t, afterC.IncompleteWordTrieNode, afterBlank.IncompleteWordTrieNode)
	require.Equal(t, afterC.ModelState, afterBlank.ModelState)
	require.Equal(t, 0.0, afterBlank.DeltaScore)

	// 重复标签（CTC 折叠）同理
	var afterRepeat LanguageModelBeamState[fakeState]
	s.ExpandState(&afterC, 2, &afterRepeat, 2)
	require.Equal(t, afterC.Score, afterRepeat.Score)
	require.Equal(t, afterC.IncompleteWord, afterRepeat.IncompleteWord)
	require.Equal(t, 0.0, afterRepeat.DeltaScore)
}

func TestLMScorerWordBoundary(t *testing.T) {
	s, model := newLMScorer(t)

	labels := append(wordLabels(t, "cat"), SpaceLabel)
	states := runLabels(s, labels)
	boundary := states[4]

	// 词边界恰好一次模型调用，查询的是整个单词
	require.Equal(t, 1, model.calls)
	require.Equal(t, []LanguageModel.WordIndex{fakeCat}, model.scored)

	// 修正步：近似前缀分被完整 LM 分取代
	require.Equal(t, boundary.Score, boundary.LanguageModelScore)
	require.InDelta(t, -2.0, boundary.Score, 1e-9)
	require.InDelta(t, -2.0-states[3].Score, boundary.DeltaScore, 1e-9)

	// 半截单词复位，模型上下文推进
	require.Equal(t, "", boundary.IncompleteWord)
	require.Equal(t, fakeState{Prev: fakeCat}, boundary.ModelState)

	// 游标已回到树根：下一个 'c' 又能拿到 log10(8/8) 的前缀分
	var next LanguageModelBeamState[fakeState]
	s.ExpandState(&boundary, SpaceLabel, &next, 2)
	require.InDelta(t, 0.0-2.0, next.Score, 1e-9) // 前缀 0 + 上个边界的 LM 分 -2
}

func TestLMScorerDeltaConsistency(t *testing.T) {
	s, _ := newLMScorer(t)

	// 混合序列：合法词、blank、词边界、非法前缀
	labels := append(wordLabels(t, "ca"), BlankLabel)
	labels = append(labels, wordLabels(t, "t")...)
	labels = append(labels, SpaceLabel)
	labels = append(labels, wordLabels(t, "cx")...)

	states := runLabels(s, labels)
	for i := 1; i < len(states); i++ {
		require.InDelta(t, states[i].Score-states[i-1].Score, states[i].DeltaScore, 1e-9,
			"step %d", i)
	}
}

func TestLMScorerExpandStateEndEmptyPending(t *testing.T) {
	s, model := newLMScorer(t)

	labels := append(wordLabels(t, "cat"), SpaceLabel)
	states := runLabels(s, labels)
	state := states[len(states)-1]
	scoreBefore := state.Score

	model.calls = 0
	model.scored = nil
	s.ExpandStateEnd(&state)

	// 没有待结算的半截词：只有一次句尾符评估
	require.Equal(t, 1, model.calls)
	require.Equal(t, []LanguageModel.WordIndex{fakeEOS}, model.scored)

	require.Equal(t, state.Score, state.LanguageModelScore)
	require.InDelta(t, -2.0-scoreBefore, state.DeltaScore, 1e-9)
	require.InDelta(t, state.DeltaScore, s.GetStateEndExpansionScore(&state), 1e-9)
}

func TestLMScorerExpandStateEndPendingWord(t *testing.T) {
	s, model := newLMScorer(t)

	// 解码停在词中间："cat" 没有后随空格
	states := runLabels(s, wordLabels(t, "cat"))
	state := states[len(states)-1]

	s.ExpandStateEnd(&state)

	// 恰好两次调用，顺序固定：先结算单词，再评估句尾符
	require.Equal(t, 2, model.calls)
	require.Equal(t, []LanguageModel.WordIndex{fakeCat, fakeEOS}, model.scored)
	require.Equal(t, "", state.IncompleteWord)
	require.Equal(t, state.Score, state.LanguageModelScore)
}

func TestLMScorerAccessors(t *testing.T) {
	s, _ := newLMScorer(t)

	states := runLabels(s, wordLabels(t, "cat"))
	last := states[len(states)-1]

	// O(1) 读取：previousScore 叠加缓存增量，不触发任何计算
	require.InDelta(t, last.DeltaScore+7.5, s.GetStateExpansionScore(&last, 7.5), 1e-9)
}

func TestLMScorerInitializeStateIdempotent(t *testing.T) {
	s, _ := newLMScorer(t)

	var fresh LanguageModelBeamState[fakeState]
	s.InitializeState(&fresh)

	// 弄脏一个状态再重新初始化，必须和新初始化的完全一致
	states := runLabels(s, wordLabels(t, "cx"))
	dirty := states[len(states)-1]
	s.InitializeState(&dirty)
	require.Equal(t, fresh, dirty)

	require.Equal(t, 0.0, fresh.Score)
	require.Equal(t, "", fresh.IncompleteWord)
	require.Equal(t, fakeState{Prev: fakeBOS}, fresh.ModelState)
}

func TestLMScorerWithNGramModel(t *testing.T) {
	// 端到端：真实的 bigram 模型 + 字典树
	model := LanguageModel.NewNGramModel(LanguageModel.ModelFile{
		Unigrams: map[string]float64{"cat": 0.5, "car": 0.3},
		Bigrams:  map[string]map[string]float64{"<s>": {"cat": 0.6}},
	})
	s, err := NewLanguageModelScorerFromTrie[LanguageModel.NGramState](
		DefaultConfig(), model, buildCatCarTrie(t))
	require.NoError(t, err)

	labels := append(wordLabels(t, "cat"), SpaceLabel)
	states := runLabels(s, labels)
	boundary := states[len(states)-1]

	// P(cat | <s>) = 0.6
	require.InDelta(t, math.Log10(0.6), boundary.Score, 1e-9)
	require.Equal(t, boundary.Score, boundary.LanguageModelScore)

	// 句尾：cat -> </s> 没有 bigram 也没有 unigram，落到模型兜底分
	s.ExpandStateEnd(&boundary)
	require.InDelta(t, LanguageModel.DefaultUnknownLogProb, boundary.Score, 1e-9)
}

func TestLMScorerConstructionErrors(t *testing.T) {
	root := buildCatCarTrie(t)

	// nil 模型
	s, err := NewLanguageModelScorerFromTrie[fakeState](DefaultConfig(), nil, root)
	require.Error(t, err)
	require.Nil(t, s)

	// nil 树
	s, err = NewLanguageModelScorerFromTrie[fakeState](DefaultConfig(), &countingModel{}, nil)
	require.Error(t, err)
	require.Nil(t, s)

	// 树文件缺失
	s, err = NewLanguageModelScorer[fakeState](DefaultConfig(), &countingModel{},
		filepath.Join(t.TempDir(), "missing.trie"))
	require.Error(t, err)
	require.Nil(t, s)

	// 树文件损坏
	bad := filepath.Join(t.TempDir(), "bad.trie")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not a trie"), 0644))
	s, err = NewLanguageModelScorer[fakeState](DefaultConfig(), &countingModel{}, bad)
	require.Error(t, err)
	require.Nil(t, s)
}
