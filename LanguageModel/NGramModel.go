package LanguageModel

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// 特殊符号：句首、句尾、未登录词
const (
	BeginSentenceWord = "<s>"
	EndSentenceWord   = "</s>"
	UnknownWord       = "<unk>"
)

// DefaultUnknownLogProb 未知组合的兜底对数概率 (log10(1e-6))
// 模型里查不到的 bigram/unigram 都落到这个惩罚分上，查询失败不是错误
const DefaultUnknownLogProb = -6.0

// ModelFile 是 bigram 模型文件的 JSON 结构
// 为了方便人工阅读，文件里存的是直观的线性概率，加载时再统一转成 log10
// (BuildModel 工具负责生成这个文件)
type ModelFile struct {
	// Unigrams: 单词 -> P(word)
	Unigrams map[string]float64 `json:"unigrams"`
	// Bigrams: 前词 -> 后词 -> P(next|prev)，前词可以是 <s>，后词可以是 </s>
	Bigrams map[string]map[string]float64 `json:"bigrams"`
}

// NGramState 是 NGramModel 的上下文：bigram 只需要记住上一个词
// 纯值类型，beam 之间按值拷贝即可独立演化
type NGramState struct {
	Prev WordIndex
}

// NGramModel 基于词 bigram 的语言模型，带 unigram 回退
// 查询顺序: bigram 命中 -> unigram 回退 -> DefaultProb 兜底
type NGramModel struct {
	words    []string                          // 编号 -> 单词
	bigrams  map[WordIndex]map[WordIndex]float64 // log10 P(next|prev)
	unigrams map[WordIndex]float64             // log10 P(word)

	// DefaultProb 未知组合的兜底分，可以在加载后按需调整
	DefaultProb float64

	vocab *ngramVocabulary
	bos   WordIndex
}

type ngramVocabulary struct {
	index map[string]WordIndex
	eos   WordIndex
	unk   WordIndex
}

func (v *ngramVocabulary) Index(word string) WordIndex {
	if i, ok := v.index[word]; ok {
		return i
	}
	return v.unk
}

func (v *ngramVocabulary) EndSentence() WordIndex {
	return v.eos
}

// 编译期确认 NGramModel 满足后端契约
var _ Model[NGramState] = (*NGramModel)(nil)

// NewNGramModel 由 ModelFile 构建模型
// 词表编号按字典序分配，保证同一份文件每次加载得到相同的编号
func NewNGramModel(file ModelFile) *NGramModel {
	// 1. 收集全部单词（unigram 键 + bigram 两侧的键）
	seen := make(map[string]bool)
	for w := range file.Unigrams {
		seen[w] = true
	}
	for prev, nextMap := range file.Bigrams {
		seen[prev] = true
		for next := range nextMap {
			seen[next] = true
		}
	}
	// 特殊符号始终在词表里，语料里不需要显式出现
	seen[BeginSentenceWord] = true
	seen[EndSentenceWord] = true
	seen[UnknownWord] = true

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	index := make(map[string]WordIndex, len(words))
	for i, w := range words {
		index[w] = WordIndex(i)
	}

	m := &NGramModel{
		words:       words,
		bigrams:     make(map[WordIndex]map[WordIndex]float64, len(file.Bigrams)),
		unigrams:    make(map[WordIndex]float64, len(file.Unigrams)),
		DefaultProb: DefaultUnknownLogProb,
		vocab: &ngramVocabulary{
			index: index,
			eos:   index[EndSentenceWord],
			unk:   index[UnknownWord],
		},
		bos: index[BeginSentenceWord],
	}

	// 2. 线性概率 -> log10，非法概率 (p <= 0) 直接丢弃，让它落到兜底分
	for w, p := range file.Unigrams {
		if p <= 0 {
			continue
		}
		m.unigrams[index[w]] = math.Log10(p)
	}
	for prev, nextMap := range file.Bigrams {
		row := make(map[WordIndex]float64, len(nextMap))
		for next, p := range nextMap {
			if p <= 0 {
				continue
			}
			row[index[next]] = math.Log10(p)
		}
		if len(row) > 0 {
			m.bigrams[index[prev]] = row
		}
	}
	return m
}

// LoadNGramModel 从 JSON 文件加载模型
// 文件缺失或格式损坏属于构造期致命错误，直接返回 error，不会给出半个模型
func LoadNGramModel(path string) (*NGramModel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("languagemodel: open %s: %w", path, err)
	}
	var file ModelFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("languagemodel: parse %s: %w", path, err)
	}
	if len(file.Unigrams) == 0 && len(file.Bigrams) == 0 {
		return nil, fmt.Errorf("languagemodel: %s contains no n-grams", path)
	}
	return NewNGramModel(file), nil
}

// BeginSentenceState 返回句首上下文
func (m *NGramModel) BeginSentenceState() NGramState {
	return NGramState{Prev: m.bos}
}

// FullScore 查询 P(word | in.Prev)
// bigram 查不到就回退 unigram，再查不到给 DefaultProb；任何情况下都会推进上下文
func (m *NGramModel) FullScore(in NGramState, word WordIndex) (float64, NGramState) {
	out := NGramState{Prev: word}
	if row, ok := m.bigrams[in.Prev]; ok {
		if p, ok := row[word]; ok {
			return p, out
		}
	}
	if p, ok := m.unigrams[word]; ok {
		return p, out
	}
	return m.DefaultProb, out
}

// Vocabulary 返回模型词表
func (m *NGramModel) Vocabulary() Vocabulary {
	return m.vocab
}

// Word 反查编号对应的单词（调试用）
func (m *NGramModel) Word(i WordIndex) string {
	if i < 0 || int(i) >= len(m.words) {
		return UnknownWord
	}
	return m.words[i]
}
