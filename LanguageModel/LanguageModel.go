package LanguageModel

// WordIndex 词表中一个单词的编号
type WordIndex int

// Vocabulary 语言模型的词表
type Vocabulary interface {
	// Index 查找单词编号，未登录词 (OOV) 返回 <unk> 的编号，不报错
	Index(word string) WordIndex
	// EndSentence 返回句尾符 </s> 的编号
	EndSentence() WordIndex
}

// Model 是 n-gram 语言模型后端的契约
// State 是模型自己的上下文对象（比如最近 n-1 个词的历史），对调用方完全不透明
// State 必须是值语义：每个 beam 按值拷贝自己的上下文独立演化，后端不得在
// FullScore 里修改传入的 in，只能返回新的 out
type Model[State any] interface {
	// BeginSentenceState 返回句首 (<s>) 上下文，解码开始时每个根 beam 用它初始化
	BeginSentenceState() State
	// FullScore 返回在上下文 in 下接 word 的对数概率 (log10)，以及接完之后的新上下文
	FullScore(in State, word WordIndex) (logProb float64, out State)
	// Vocabulary 返回模型的词表
	Vocabulary() Vocabulary
}
