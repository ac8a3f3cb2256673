package BeamScorer

// 标签约定：0-25 是字母 a-z，26 是撇号，27 是空格（词分隔），28 是 CTC blank
// 这是翻译器和所有提供标签的调用方之间的固定契约
const (
	ApostropheLabel = 26
	SpaceLabel      = 27
	BlankLabel      = 28
)

// LabelTranslator 标签 -> 字母表语义的纯映射，无状态
// 合法范围内的每个标签恰好对应一种分类，没有错误情形
type LabelTranslator struct{}

// IsBlankLabel 是否是 CTC blank（折叠符号，不参与组词）
func (LabelTranslator) IsBlankLabel(label int) bool {
	return label == BlankLabel
}

// IsSpaceLabel 是否是词分隔符
func (LabelTranslator) IsSpaceLabel(label int) bool {
	return label == SpaceLabel
}

// GetCharacterFromLabel 标签 -> 字符
func (LabelTranslator) GetCharacterFromLabel(label int) byte {
	if label == ApostropheLabel {
		return '\''
	}
	if label == SpaceLabel {
		return ' '
	}
	return byte('a' + label)
}

// GetLabelFromCharacter 字符 -> 标签（逆映射，BuildModel 建树时用）
// 字母表之外的字符返回 -1
func (LabelTranslator) GetLabelFromCharacter(ch byte) int {
	switch {
	case ch >= 'a' && ch <= 'z':
		return int(ch - 'a')
	case ch == '\'':
		return ApostropheLabel
	case ch == ' ':
		return SpaceLabel
	}
	return -1
}
