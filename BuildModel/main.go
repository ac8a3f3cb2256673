package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"ctc/BeamScorer"
	"ctc/LanguageModel"
	"ctc/Trie"
)

// CorpusStats 用于统计
type CorpusStats struct {
	WordCounts   map[string]int            // 单词 -> 出现次数
	BigramCounts map[string]map[string]int // 前词 -> 后词 -> 次数
	BigramTotals map[string]int            // 前词 -> 总次数
	TotalWords   int
}

func main() {
	corpusPath := flag.String("corpus", "corpus.txt", "Input text corpus")
	triePath := flag.String("trie", "vocab.trie", "Output vocabulary trie (use .xz suffix to compress)")
	modelPath := flag.String("model", "bigrams.json", "Output bigram model JSON")
	flag.Parse()

	// 1. 读取"黄金样本"语料
	content, err := os.ReadFile(*corpusPath)
	if err != nil {
		log.Fatalf("read corpus: %v", err)
	}

	stats := &CorpusStats{
		WordCounts:   make(map[string]int),
		BigramCounts: make(map[string]map[string]int),
		BigramTotals: make(map[string]int),
	}

	// 2. 逐行统计：每一行当一个句子，首尾补 <s> / </s>
	for _, line := range strings.Split(string(content), "\n") {
		words := strings.Fields(preProcess(line))
		if len(words) == 0 {
			continue
		}

		prev := LanguageModel.BeginSentenceWord
		for _, w := range words {
			stats.WordCounts[w]++
			stats.TotalWords++
			addBigram(stats, prev, w)
			prev = w
		}
		addBigram(stats, prev, LanguageModel.EndSentenceWord)
	}

	if stats.TotalWords == 0 {
		log.Fatalf("corpus %s contains no usable words", *corpusPath)
	}

	// 3. 构建词表字典树：每个单词按标签序列插入，沿途累加词频
	// 根节点的频率就是语料总词数，打分时作归一化分母
	var translator BeamScorer.LabelTranslator
	root := Trie.NewTrieNode()
	for word, count := range stats.WordCounts {
		labels := make([]int, 0, len(word))
		for i := 0; i < len(word); i++ {
			labels = append(labels, translator.GetLabelFromCharacter(word[i]))
		}
		if err := root.Insert(labels, count); err != nil {
			log.Fatalf("insert %q: %v", word, err)
		}
	}
	if err := root.SaveFile(*triePath); err != nil {
		log.Fatalf("write trie: %v", err)
	}

	// 4. 计算概率并输出 JSON
	// 文件里存直观的线性概率，方便人工检查；加载时由 LanguageModel 统一转 log10
	file := LanguageModel.ModelFile{
		Unigrams: make(map[string]float64, len(stats.WordCounts)),
		Bigrams:  make(map[string]map[string]float64, len(stats.BigramCounts)),
	}
	for word, count := range stats.WordCounts {
		file.Unigrams[word] = float64(count) / float64(stats.TotalWords)
	}
	for prev, nextMap := range stats.BigramCounts {
		row := make(map[string]float64, len(nextMap))
		total := float64(stats.BigramTotals[prev])
		for next, count := range nextMap {
			row[next] = float64(count) / total
		}
		file.Bigrams[prev] = row
	}

	jsonData, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		log.Fatalf("marshal model: %v", err)
	}
	if err := os.WriteFile(*modelPath, jsonData, 0644); err != nil {
		log.Fatalf("write model: %v", err)
	}

	fmt.Printf("模型构建完成！共 %d 词（词表 %d），生成了 %s 和 %s\n",
		stats.TotalWords, len(stats.WordCounts), *triePath, *modelPath)
}

func addBigram(stats *CorpusStats, prev, next string) {
	if _, ok := stats.BigramCounts[prev]; !ok {
		stats.BigramCounts[prev] = make(map[string]int)
	}
	stats.BigramCounts[prev][next]++
	stats.BigramTotals[prev]++
}

// preProcess 只保留解码字母表能表示的字符：a-z 和撇号
// 其他一律当成分隔符，连续空白合并为一个空格
func preProcess(input string) string {
	var sb strings.Builder
	lastWasSpace := false

	for _, r := range strings.ToLower(input) {
		isValid := (r >= 'a' && r <= 'z') || r == '\''

		if isValid {
			sb.WriteRune(r)
			lastWasSpace = false
		} else if !lastWasSpace {
			// 非法字符和空白统一折叠成单个空格
			sb.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return sb.String()
}
