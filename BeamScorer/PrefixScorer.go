package BeamScorer

import (
	"errors"

	"ctc/Trie"
)

// PrefixBeamState 是 PrefixScorer 维护的 beam 状态
type PrefixBeamState struct {
	// Prob 累积的惩罚分（对数刻度，只减不加）
	Prob float64
	// Node 当前单词在字典树里走到的位置（非拥有游标）
	// nil 表示本词已经失配，惩罚已扣，等词边界再复位
	Node *Trie.TrieNode
}

// PrefixScorer 对"累积前缀在词表字典树里不存在"的 beam 施加固定惩罚
// 它不做语言模型打分，只是一个便宜的词表过滤器
type PrefixScorer struct {
	cfg        Config
	trieRoot   *Trie.TrieNode
	translator LabelTranslator
}

var _ Scorer[PrefixBeamState] = (*PrefixScorer)(nil)

// NewPrefixScorer 从字典树文件构造
// 文件缺失/损坏属于构造期致命错误，返回 error，不产出半个打分器
func NewPrefixScorer(cfg Config, triePath string) (*PrefixScorer, error) {
	root, err := Trie.LoadFile(triePath)
	if err != nil {
		return nil, err
	}
	return NewPrefixScorerFromTrie(cfg, root)
}

// NewPrefixScorerFromTrie 直接用已经建好的树构造（测试和内存建树场景）
func NewPrefixScorerFromTrie(cfg Config, root *Trie.TrieNode) (*PrefixScorer, error) {
	if root == nil {
		return nil, errors.New("beamscorer: nil trie root")
	}
	return &PrefixScorer{cfg: cfg, trieRoot: root}, nil
}

// InitializeState 根状态：零惩罚，游标指向树根
func (s *PrefixScorer) InitializeState(root *PrefixBeamState) {
	root.Prob = 0
	root.Node = s.trieRoot
}

// ExpandState 单步状态机：
//   - 重复标签 / blank：CTC 折叠，状态原样拷贝
//   - 词分隔符：游标复位到树根（校验在逐字母推进时已经做过，这里不再扣分）
//   - 普通字母：推进游标；首次走不下去时扣一次惩罚并置 nil，之后本词不再扣
func (s *PrefixScorer) ExpandState(fromState *PrefixBeamState, fromLabel int, toState *PrefixBeamState, toLabel int) {
	*toState = *fromState

	if fromLabel == toLabel || s.translator.IsBlankLabel(toLabel) {
		return
	}

	if s.translator.IsSpaceLabel(toLabel) {
		toState.Node = s.trieRoot
		return
	}

	if toState.Node == nil {
		// 前面已经确认本词没有前缀，惩罚也扣过了（每词只扣一次）
		return
	}

	toState.Node = toState.Node.GetChildAt(toLabel)
	if toState.Node == nil {
		toState.Prob -= s.cfg.PrefixMissPenalty
	}
}

// ExpandStateEnd 没有句尾行为
func (s *PrefixScorer) ExpandStateEnd(state *PrefixBeamState) {}

// GetStateExpansionScore 返回累积惩罚
// 这个打分器不走逐步增量：惩罚在发生的那一步就是完整的边际变化，
// 其余步骤的变化是零，所以直接返回累计值即可
func (s *PrefixScorer) GetStateExpansionScore(state *PrefixBeamState, previousScore float64) float64 {
	return state.Prob
}

// GetStateEndExpansionScore 同上，返回累积惩罚
func (s *PrefixScorer) GetStateEndExpansionScore(state *PrefixBeamState) float64 {
	return state.Prob
}
