package BeamScorer

// Config 集中管理打分器的策略常数
// 这两个值都是经验值，没有原理性的推导方法，按任务校准即可
type Config struct {
	// PrefixMissPenalty 单词前缀在字典树里首次失配时扣掉的对数惩罚
	// 每个单词最多扣一次（失配之后游标失效，后续字母不再重复扣分）
	PrefixMissPenalty float64

	// UnknownPrefixLogProb 前缀游标已失效时使用的兜底对数概率 (log10)
	// 设成强负值让非法前缀被压制，但又不至于直接淘汰 beam：
	// 如果后面完整的语言模型打分不同意，搜索还有机会翻盘
	UnknownPrefixLogProb float64
}

// DefaultConfig 返回当前的经验默认值
func DefaultConfig() Config {
	return Config{
		PrefixMissPenalty:    1.0,
		UnknownPrefixLogProb: -10.0,
	}
}
