package Trie

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
)

// AlphabetSize 字母表大小：26 个字母 + 撇号，共 27 个标签可以进入字典树
// (空格和 blank 是边界符号，不会作为前缀的一部分存进来)
const AlphabetSize = 27

// TrieNode 词表字典树的节点
// frequency 是"以该前缀开头的单词总出现次数"（累积前缀计数）
// 根节点的 frequency 即语料总词数，作为归一化分母使用
// 树在构建/加载完成后是只读的，束搜索的各个 beam 只持有指向节点的游标，不会修改树
type TrieNode struct {
	frequency int
	children  [AlphabetSize]*TrieNode
}

// NewTrieNode 创建一个空节点（频率 0，无子节点）
func NewTrieNode() *TrieNode {
	return &TrieNode{}
}

// GetFrequency 返回该前缀的累积出现次数
func (n *TrieNode) GetFrequency() int {
	return n.frequency
}

// GetChildAt 按标签查找子节点
// 标签越界或子节点不存在时返回 nil，调用方用 nil 表示"前缀失配"
func (n *TrieNode) GetChildAt(label int) *TrieNode {
	if label < 0 || label >= AlphabetSize {
		return nil
	}
	return n.children[label]
}

// Insert 把一个单词（已转成标签序列）插入树中，沿途每个节点的频率都加 count
// 注意：根节点的频率也会累加，这样 root.frequency 始终等于语料总词数
func (n *TrieNode) Insert(labels []int, count int) error {
	// 先整体校验，避免插到一半才发现非法标签，把树弄脏
	for _, label := range labels {
		if label < 0 || label >= AlphabetSize {
			return fmt.Errorf("trie: label %d out of range [0, %d)", label, AlphabetSize)
		}
	}

	cur := n
	cur.frequency += count
	for _, label := range labels {
		if cur.children[label] == nil {
			cur.children[label] = &TrieNode{}
		}
		cur = cur.children[label]
		cur.frequency += count
	}
	return nil
}

// --- 序列化 ---
// 持久化格式：前序遍历的整数流（空白分隔的文本）
// 每个节点依次写出: frequency childCount (label subtree)*
// 例如只含 "a"(freq 2) 的树: "2 1 0 2 0"

// WriteTo 把整棵树写入 w
func (n *TrieNode) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeNode(bw, n); err != nil {
		return err
	}
	return bw.Flush()
}

func writeNode(bw *bufio.Writer, n *TrieNode) error {
	childCount := 0
	for _, child := range n.children {
		if child != nil {
			childCount++
		}
	}
	if _, err := fmt.Fprintf(bw, "%d %d", n.frequency, childCount); err != nil {
		return err
	}
	for label, child := range n.children {
		if child == nil {
			continue
		}
		if _, err := fmt.Fprintf(bw, " %d ", label); err != nil {
			return err
		}
		if err := writeNode(bw, child); err != nil {
			return err
		}
	}
	return nil
}

// Read 从 r 中读出一棵树
// 流被截断、出现非数字、标签越界等任何异常都会返回错误（不会返回半棵树）
func Read(r io.Reader) (*TrieNode, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	in := &intReader{sc: sc}

	root, err := readNode(in)
	if err != nil {
		return nil, fmt.Errorf("trie: malformed stream: %w", err)
	}
	return root, nil
}

type intReader struct {
	sc *bufio.Scanner
}

func (r *intReader) next() (int, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	v, err := strconv.Atoi(r.sc.Text())
	if err != nil {
		return 0, err
	}
	return v, nil
}

func readNode(in *intReader) (*TrieNode, error) {
	frequency, err := in.next()
	if err != nil {
		return nil, err
	}
	if frequency < 0 {
		return nil, fmt.Errorf("negative frequency %d", frequency)
	}

	childCount, err := in.next()
	if err != nil {
		return nil, err
	}
	if childCount < 0 || childCount > AlphabetSize {
		return nil, fmt.Errorf("invalid child count %d", childCount)
	}

	node := &TrieNode{frequency: frequency}
	for i := 0; i < childCount; i++ {
		label, err := in.next()
		if err != nil {
			return nil, err
		}
		if label < 0 || label >= AlphabetSize {
			return nil, fmt.Errorf("label %d out of range [0, %d)", label, AlphabetSize)
		}
		if node.children[label] != nil {
			return nil, fmt.Errorf("duplicate child label %d", label)
		}
		child, err := readNode(in)
		if err != nil {
			return nil, err
		}
		node.children[label] = child
	}
	return node, nil
}

// LoadFile 从文件加载字典树
// 大词表的树文件可能很大，所以支持 xz 压缩：文件名以 .xz 结尾时透明解压
func LoadFile(path string) (*TrieNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trie: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("trie: xz %s: %w", path, err)
		}
		r = xr
	}
	return Read(r)
}

// SaveFile 把树写入文件，文件名以 .xz 结尾时自动压缩
func (n *TrieNode) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trie: create %s: %w", path, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".xz") {
		xw, err := xz.NewWriter(f)
		if err != nil {
			return fmt.Errorf("trie: xz %s: %w", path, err)
		}
		if err := n.WriteTo(xw); err != nil {
			return err
		}
		if err := xw.Close(); err != nil {
			return err
		}
		return f.Close()
	}

	if err := n.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}
