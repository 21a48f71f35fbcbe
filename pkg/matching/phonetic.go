package matching

import (
	"strings"

	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
)

// Soundex returns the four character phonetic code of a name.
// The first normalized character is kept; following characters append their
// digit unless it repeats the last emitted one. Uncoded characters are skipped.
func Soundex(str string) string {
	normalized := strings.ToUpper(normalizers.Text(str))
	if normalized == "" {
		return ""
	}

	runes := []rune(normalized)
	var result strings.Builder
	result.WriteRune(runes[0])
	last := string(runes[0])
	length := 1

	for _, char := range runes[1:] {
		if length >= 4 {
			break
		}
		code := soundexCode(char)
		if code == "" || code == last {
			continue
		}
		result.WriteString(code)
		last = code
		length++
	}

	for ; length < 4; length++ {
		result.WriteByte('0')
	}

	return result.String()
}

func soundexCode(char rune) string {
	switch char {
	case 'B', 'F', 'P', 'V':
		return "1"
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return "2"
	case 'D', 'T':
		return "3"
	case 'L':
		return "4"
	case 'M', 'N':
		return "5"
	case 'R':
		return "6"
	default:
		return ""
	}
}
