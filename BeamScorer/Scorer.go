package BeamScorer

// Scorer 是束搜索打分器的统一契约，S 是打分器自己维护的 beam 状态类型
// 外部的束搜索驱动只通过这五个方法和打分器交互，不需要知道 S 里有什么
//
// 驱动的调用约定：
//  1. 每个根 beam 解码前调用一次 InitializeState
//  2. 每一步扩展，对每个 (父 beam, 候选标签) 对 最多调用一次 ExpandState，
//     然后用 GetStateExpansionScore 把缓存的增量分叠加进该步的累计对数概率
//  3. 解码结束后，对每个存活 beam 调用一次 ExpandStateEnd，
//     再用 GetStateEndExpansionScore 取句尾贡献，最后排序出结果
//
// 两个 Get 方法必须是 O(1) 的纯读取：昂贵的查表/模型调用只发生在
// ExpandState / ExpandStateEnd 里，驱动在排序剪枝时可以反复读分数而不会
// 重复触发计算
type Scorer[S any] interface {
	// InitializeState 把一个新分配的根状态填上默认值，重复调用效果相同
	InitializeState(root *S)
	// ExpandState 由父状态和标签转移 (fromLabel -> toLabel) 计算子状态，写入 toState
	// 不得修改 fromState；子状态必须先整体拷贝父状态再施加这一个标签的影响
	ExpandState(fromState *S, fromLabel int, toState *S, toLabel int)
	// ExpandStateEnd 在解码结束后做句尾打分，每个 beam 最多调用一次
	ExpandStateEnd(state *S)
	// GetStateExpansionScore 返回 previousScore 叠加上一次 ExpandState 缓存的增量
	// (分数都是对数概率，独立概率的组合就是加法)
	GetStateExpansionScore(state *S, previousScore float64) float64
	// GetStateEndExpansionScore 返回 ExpandStateEnd 缓存的句尾增量
	GetStateEndExpansionScore(state *S) float64
}

// BaseScorer 是默认实现：不维护任何状态，不改变任何分数
// 自定义打分器可以内嵌它，只覆盖自己关心的方法
type BaseScorer[S any] struct{}

var _ Scorer[struct{}] = BaseScorer[struct{}]{}

func (BaseScorer[S]) InitializeState(root *S) {}

func (BaseScorer[S]) ExpandState(fromState *S, fromLabel int, toState *S, toLabel int) {}

func (BaseScorer[S]) ExpandStateEnd(state *S) {}

// GetStateExpansionScore 默认没有状态扩展逻辑，增量为零，原样返回 previousScore
func (BaseScorer[S]) GetStateExpansionScore(state *S, previousScore float64) float64 {
	return previousScore
}

func (BaseScorer[S]) GetStateEndExpansionScore(state *S) float64 {
	return 0
}
