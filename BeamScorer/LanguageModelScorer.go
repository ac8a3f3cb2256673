package BeamScorer

import (
	"errors"
	"math"

	"ctc/LanguageModel"
	"ctc/Trie"
)

// LanguageModelBeamState 是 LanguageModelScorer 维护的 beam 状态
// State 是外部语言模型的上下文类型，按值随 beam 拷贝，各 beam 独立演化
type LanguageModelBeamState[State any] struct {
	// Score 当前总分（对数概率）：上个词边界的完整 LM 分 + 本词的前缀近似分
	Score float64
	// LanguageModelScore 最近一次完整语言模型评估的结果
	LanguageModelScore float64
	// DeltaScore 最近一次扩展贡献的增量分，缓存起来供 O(1) 读取
	DeltaScore float64
	// IncompleteWord 自上一个词边界以来累积的半截单词
	// 用 string 而不是 []byte：状态整体赋值拷贝时 string 天然不共享可变底层
	IncompleteWord string
	// IncompleteWordTrieNode 半截单词在字典树里的游标（非拥有）
	// nil 表示该前缀不在词表里，词边界复位前保持 nil
	IncompleteWordTrieNode *Trie.TrieNode
	// ModelState 语言模型的上下文，值语义
	ModelState State
}

// LanguageModelScorer 组合两路打分：
//   - 逐字母推进时用字典树的前缀频率做便宜的近似分（这个词像不像词表里的词）
//   - 到词边界时用外部 n-gram 模型做完整打分，修正掉前面的近似
//
// 树和模型在构造后只读，多个并发调用方共享它们是安全的；每个 beam 状态
// 只被一个调用方持有，调用之间不需要加锁
type LanguageModelScorer[State any] struct {
	cfg        Config
	model      LanguageModel.Model[State]
	trieRoot   *Trie.TrieNode
	translator LabelTranslator
}

var _ Scorer[LanguageModelBeamState[struct{}]] = (*LanguageModelScorer[struct{}])(nil)

// NewLanguageModelScorer 构造打分器，字典树从文件加载
// 模型缺失、树文件缺失/损坏都是构造期致命错误
func NewLanguageModelScorer[State any](cfg Config, model LanguageModel.Model[State], triePath string) (*LanguageModelScorer[State], error) {
	root, err := Trie.LoadFile(triePath)
	if err != nil {
		return nil, err
	}
	return NewLanguageModelScorerFromTrie(cfg, model, root)
}

// NewLanguageModelScorerFromTrie 直接用建好的树构造
func NewLanguageModelScorerFromTrie[State any](cfg Config, model LanguageModel.Model[State], root *Trie.TrieNode) (*LanguageModelScorer[State], error) {
	if model == nil {
		return nil, errors.New("beamscorer: nil language model")
	}
	if root == nil {
		return nil, errors.New("beamscorer: nil trie root")
	}
	return &LanguageModelScorer[State]{cfg: cfg, model: model, trieRoot: root}, nil
}

// InitializeState 根状态：零分、空词、游标指向树根、模型上下文是句首状态
// 每个字段都无条件赋值，重复调用效果相同
func (s *LanguageModelScorer[State]) InitializeState(root *LanguageModelBeamState[State]) {
	root.Score = 0
	root.LanguageModelScore = 0
	root.DeltaScore = 0
	root.IncompleteWord = ""
	root.IncompleteWordTrieNode = s.trieRoot
	root.ModelState = s.model.BeginSentenceState()
}

// ExpandState 单步状态机：
//   - 重复标签 / blank：CTC 折叠，只把增量清零
//   - 普通字母：追加到半截单词，推进字典树游标，用前缀频率近似打分
//   - 词分隔符：把半截单词交给语言模型做完整打分（修正步），然后复位
//
// 昂贵的模型调用只发生在词边界这一个分支，逐字母的分支只有一次 O(1) 查表
func (s *LanguageModelScorer[State]) ExpandState(fromState *LanguageModelBeamState[State], fromLabel int, toState *LanguageModelBeamState[State], toLabel int) {
	s.copyState(fromState, toState)

	if fromLabel == toLabel || s.translator.IsBlankLabel(toLabel) {
		toState.DeltaScore = 0
		return
	}

	if !s.translator.IsSpaceLabel(toLabel) {
		toState.IncompleteWord += string(s.translator.GetCharacterFromLabel(toLabel))
		node := fromState.IncompleteWordTrieNode

		prefixProb := s.cfg.UnknownPrefixLogProb
		// 只有前缀还活着才推进游标；比值也只在找到子节点时才计算，
		// 否则保持兜底分（分支顺序沿用至今，不要重排）
		if node != nil {
			node = node.GetChildAt(toLabel)
			toState.IncompleteWordTrieNode = node

			if node != nil {
				// 前缀似然 = 该前缀的累积词频 / 语料总词频，转成 log10 和模型同刻度
				prefixProb = math.Log10(float64(node.GetFrequency()) / float64(s.trieRoot.GetFrequency()))
			}
		}
		// 近似总分 = 前缀分 + 上个词边界敲定的完整 LM 分
		toState.Score = prefixProb + toState.LanguageModelScore
		toState.DeltaScore = toState.Score - fromState.Score

	} else {
		// 词边界：半截单词交给模型算 P(word | 上下文)，拿到真分数和新上下文
		probability, outState := s.scoreIncompleteWord(fromState.ModelState, toState.IncompleteWord)
		toState.ModelState = outState
		s.updateWithLMScore(toState, probability)
		s.resetIncompleteWord(toState)
	}
}

// ExpandStateEnd 句尾打分，解码结束后每个 beam 调一次：
//  1. 还有半截单词没结算的（句子停在词中间），先走一遍和词边界完全相同的结算
//  2. 再让模型给显式的句尾符 </s> 打分，这个终值覆盖运行分，差值就是句尾贡献
func (s *LanguageModelScorer[State]) ExpandStateEnd(state *LanguageModelBeamState[State]) {
	if len(state.IncompleteWord) > 0 {
		_, outState := s.scoreIncompleteWord(state.ModelState, state.IncompleteWord)
		s.resetIncompleteWord(state)
		state.ModelState = outState
	}
	probability, _ := s.model.FullScore(state.ModelState, s.model.Vocabulary().EndSentence())
	s.updateWithLMScore(state, probability)
}

// GetStateExpansionScore 叠加缓存的增量，不重做任何查表
func (s *LanguageModelScorer[State]) GetStateExpansionScore(state *LanguageModelBeamState[State], previousScore float64) float64 {
	return state.DeltaScore + previousScore
}

// GetStateEndExpansionScore 返回 ExpandStateEnd 缓存的句尾增量
func (s *LanguageModelScorer[State]) GetStateEndExpansionScore(state *LanguageModelBeamState[State]) float64 {
	return state.DeltaScore
}

// updateWithLMScore 完整 LM 分到位后的统一更新：
// 运行分和 LM 分都换成真分数，增量 = 真分数 - 修正前的运行分
func (s *LanguageModelScorer[State]) updateWithLMScore(state *LanguageModelBeamState[State], lmScore float64) {
	previousScore := state.Score
	state.LanguageModelScore = lmScore
	state.Score = lmScore
	state.DeltaScore = lmScore - previousScore
}

// resetIncompleteWord 词边界复位：空词，游标回到树根
func (s *LanguageModelScorer[State]) resetIncompleteWord(state *LanguageModelBeamState[State]) {
	state.IncompleteWord = ""
	state.IncompleteWordTrieNode = s.trieRoot
}

// scoreIncompleteWord 按词表编号查词并让模型打分，未登录词由词表映射成 <unk>
func (s *LanguageModelScorer[State]) scoreIncompleteWord(modelState State, word string) (float64, State) {
	vocab := s.model.Vocabulary().Index(word)
	return s.model.FullScore(modelState, vocab)
}

// copyState 子状态从父状态整体拷贝起步
// 所有字段都是值语义（string、数值、值类型的 ModelState、只读树的指针游标），
// 结构体赋值即完成独立拷贝
func (s *LanguageModelScorer[State]) copyState(from *LanguageModelBeamState[State], to *LanguageModelBeamState[State]) {
	*to = *from
}
